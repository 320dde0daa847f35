// Package session persists the device session and enforces its expiry.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/storage"
)

// StorageKey is the fixed key the session lives under.
const StorageKey = "session-store"

// Store reads and writes sessions. Each user id is its own namespace.
type Store struct {
	kv  storage.Store
	now func() time.Time
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Load returns the persisted session, or a logged-out one when none exists.
func (s *Store) Load(ctx context.Context, userID string) (models.Session, error) {
	data, err := s.kv.Get(ctx, storage.Key(userID, StorageKey))
	if errors.Is(err, storage.ErrNotFound) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Save persists sess for userID.
func (s *Store) Save(ctx context.Context, userID string, sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.kv.Set(ctx, storage.Key(userID, StorageKey), data)
}

// Clear signs the user out by removing the persisted session.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, storage.Key(userID, StorageKey)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	log.WithField("user_id", userID).Debug("Session cleared")
	return nil
}

// Check runs the foreground validity check. An expired session is cleared and
// reported invalid; the expiry is trusted from the local clock.
func (s *Store) Check(ctx context.Context, userID string) (bool, error) {
	sess, err := s.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	if !sess.LoggedIn {
		return false, nil
	}
	if sess.Expired(s.now()) {
		log.WithFields(log.Fields{
			"user_id": userID,
			"expiry":  time.UnixMilli(sess.AuthExpiry).UTC(),
		}).Info("Session expired")
		if err := s.Clear(ctx, userID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Update applies fn to the stored session in one atomic read-modify-write,
// so concurrent selections from the same user do not overwrite each other.
func (s *Store) Update(ctx context.Context, userID string, fn func(*models.Session)) (models.Session, error) {
	var sess models.Session
	err := s.kv.Update(ctx, storage.Key(userID, StorageKey), func(current []byte, found bool) ([]byte, error) {
		sess = models.Session{}
		if found {
			if err := json.Unmarshal(current, &sess); err != nil {
				return nil, fmt.Errorf("decode session: %w", err)
			}
		}
		fn(&sess)
		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}
		return data, nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) SetRole(ctx context.Context, userID string, role models.Role) (models.Session, error) {
	return s.Update(ctx, userID, func(sess *models.Session) { sess.Role = role })
}

func (s *Store) SetOrg(ctx context.Context, userID string, org models.Org) (models.Session, error) {
	return s.Update(ctx, userID, func(sess *models.Session) { sess.Org = &org })
}

func (s *Store) SetBranch(ctx context.Context, userID string, branch models.Branch) (models.Session, error) {
	return s.Update(ctx, userID, func(sess *models.Session) { sess.Branch = &branch })
}

func (s *Store) ToggleOffline(ctx context.Context, userID string) (models.Session, error) {
	return s.Update(ctx, userID, func(sess *models.Session) { sess.OfflineMode = !sess.OfflineMode })
}
