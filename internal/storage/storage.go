// Package storage persists small per-user documents (session, offline queue)
// under fixed keys.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("key changed concurrently")
)

// UpdateFunc maps the current value of a key to its next value. found is
// false when the key does not exist. Returning an error aborts the update.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Store is a byte-oriented key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Update runs a read-modify-write on key atomically with respect to other
	// Updates of the same key. fn may run more than once.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Key joins a namespace (usually a user id) and a fixed key.
func Key(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
