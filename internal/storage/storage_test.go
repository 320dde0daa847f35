package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "user-1:session-store")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "user-1:session-store", []byte(`{"loggedIn":true}`)))
	data, err := s.Get(ctx, "user-1:session-store")
	require.NoError(t, err)
	assert.JSONEq(t, `{"loggedIn":true}`, string(data))

	require.NoError(t, s.Set(ctx, "user-1:session-store", []byte(`{"loggedIn":false}`)))
	data, err = s.Get(ctx, "user-1:session-store")
	require.NoError(t, err)
	assert.JSONEq(t, `{"loggedIn":false}`, string(data))

	require.NoError(t, s.Delete(ctx, "user-1:session-store"))
	_, err = s.Get(ctx, "user-1:session-store")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "never-written"))

	require.NoError(t, s.Update(ctx, "user-1:counter", func(current []byte, found bool) ([]byte, error) {
		assert.False(t, found)
		assert.Nil(t, current)
		return []byte("1"), nil
	}))
	require.NoError(t, s.Update(ctx, "user-1:counter", func(current []byte, found bool) ([]byte, error) {
		assert.True(t, found)
		return append(current, '1'), nil
	}))
	data, err = s.Get(ctx, "user-1:counter")
	require.NoError(t, err)
	assert.Equal(t, "11", string(data))

	err = s.Update(ctx, "user-1:counter", func([]byte, bool) ([]byte, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	data, _ = s.Get(ctx, "user-1:counter")
	assert.Equal(t, "11", string(data))
}

// exerciseConcurrentUpdates appends one byte per goroutine and expects none lost.
func exerciseConcurrentUpdates(t *testing.T, s Store, writers int) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "user-1:log", func(current []byte, _ bool) ([]byte, error) {
				return append(append([]byte(nil), current...), 'x'), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := s.Get(ctx, "user-1:log")
	require.NoError(t, err)
	assert.Len(t, data, writers)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
	exerciseConcurrentUpdates(t, s, 20)
}

func TestFileStore_KeysWithSeparators(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a/b:offline-queue", []byte("[]")))
	require.NoError(t, s.Set(ctx, "a:b/offline-queue", []byte("[1]")))

	first, err := s.Get(ctx, "a/b:offline-queue")
	require.NoError(t, err)
	second, err := s.Get(ctx, "a:b/offline-queue")
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(second))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "tracker:")
	exerciseStore(t, s)
	// Each failed attempt means another writer committed, so writers up to
	// the retry bound always succeed.
	exerciseConcurrentUpdates(t, s, maxUpdateRetries)

	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	assert.True(t, mr.Exists("tracker:k"))
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := ConnectRedis(addr, "")
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = ConnectRedis(addr, "")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "session-store", Key("", "session-store"))
	assert.Equal(t, "u1:session-store", Key("u1", "session-store"))
}
