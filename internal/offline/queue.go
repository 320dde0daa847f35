// Package offline keeps the per-user queue of actions taken without
// connectivity and replays them later.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/storage"
)

// StorageKey is the fixed key the queue lives under.
const StorageKey = "offline-queue"

var ErrInvalidAction = errors.New("invalid offline action")

// Mirror receives a copy of every queued action and learns when it replays.
type Mirror interface {
	EnqueueRemoteAction(ctx context.Context, userID string, action models.PendingAction) error
	MarkRemoteActionProcessed(ctx context.Context, userID, actionID string) error
}

// Applier replays queued trip updates.
type Applier interface {
	UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) error
}

// Queue stores pending actions per user in insertion order.
type Queue struct {
	kv     storage.Store
	mirror Mirror
	now    func() time.Time
}

// NewQueue builds a queue over kv. mirror may be nil.
func NewQueue(kv storage.Store, mirror Mirror) *Queue {
	return &Queue{kv: kv, mirror: mirror, now: time.Now}
}

func (q *Queue) List(ctx context.Context, userID string) ([]models.PendingAction, error) {
	data, err := q.kv.Get(ctx, storage.Key(userID, StorageKey))
	if errors.Is(err, storage.ErrNotFound) {
		return []models.PendingAction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load offline queue: %w", err)
	}
	return decode(data, true)
}

func decode(data []byte, found bool) ([]models.PendingAction, error) {
	actions := []models.PendingAction{}
	if !found {
		return actions, nil
	}
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("decode offline queue: %w", err)
	}
	return actions, nil
}

// modify rewrites the user's queue atomically.
func (q *Queue) modify(ctx context.Context, userID string, fn func([]models.PendingAction) []models.PendingAction) error {
	return q.kv.Update(ctx, storage.Key(userID, StorageKey), func(current []byte, found bool) ([]byte, error) {
		actions, err := decode(current, found)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(fn(actions))
		if err != nil {
			return nil, fmt.Errorf("encode offline queue: %w", err)
		}
		return data, nil
	})
}

// validate checks that the payload names a trip and, for status updates, a
// known status.
func validate(action models.PendingAction) error {
	tripID, _ := action.Payload["tripId"].(string)
	if tripID == "" {
		return fmt.Errorf("%w: payload needs tripId", ErrInvalidAction)
	}
	switch action.Type {
	case models.ActionPOD:
		return nil
	case models.ActionStatus:
		status, _ := action.Payload["status"].(string)
		if !models.TripStatus(status).Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidAction, status)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAction, action.Type)
	}
}

// Add appends an action, assigning its id and timestamp, and mirrors it.
// A failed mirror is logged; the local queue is authoritative.
func (q *Queue) Add(ctx context.Context, userID string, actionType models.PendingActionType, payload map[string]interface{}) (models.PendingAction, error) {
	action := models.PendingAction{
		ID:        uuid.NewString(),
		Type:      actionType,
		Payload:   payload,
		CreatedAt: models.ISOTime(q.now()),
	}
	if err := validate(action); err != nil {
		return models.PendingAction{}, err
	}

	err := q.modify(ctx, userID, func(actions []models.PendingAction) []models.PendingAction {
		return append(actions, action)
	})
	if err != nil {
		return models.PendingAction{}, err
	}

	if q.mirror != nil {
		if err := q.mirror.EnqueueRemoteAction(ctx, userID, action); err != nil {
			log.WithError(err).WithFields(log.Fields{"user_id": userID, "action_id": action.ID}).Warn("Failed to mirror offline action")
		}
	}
	return action, nil
}

// Remove drops the action with id. Unknown ids are ignored.
func (q *Queue) Remove(ctx context.Context, userID, id string) error {
	return q.modify(ctx, userID, func(actions []models.PendingAction) []models.PendingAction {
		return without(actions, map[string]bool{id: true})
	})
}

func without(actions []models.PendingAction, ids map[string]bool) []models.PendingAction {
	kept := make([]models.PendingAction, 0, len(actions))
	for _, a := range actions {
		if !ids[a.ID] {
			kept = append(kept, a)
		}
	}
	return kept
}

func (q *Queue) Clear(ctx context.Context, userID string) error {
	return q.kv.Delete(ctx, storage.Key(userID, StorageKey))
}

// FlushResult reports what a flush replayed.
type FlushResult struct {
	Applied   int    `json:"applied"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

func apply(ctx context.Context, applier Applier, action models.PendingAction) error {
	tripID, _ := action.Payload["tripId"].(string)
	switch action.Type {
	case models.ActionPOD:
		return applier.UpdateTripStatus(ctx, tripID, models.TripPODSubmitted)
	case models.ActionStatus:
		status, _ := action.Payload["status"].(string)
		return applier.UpdateTripStatus(ctx, tripID, models.TripStatus(status))
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAction, action.Type)
	}
}

// Flush replays actions oldest first and stops at the first failure. Applied
// actions are removed by id, so actions added while the flush runs stay
// queued; the failed one and everything after it stay queued too.
func (q *Queue) Flush(ctx context.Context, userID string, applier Applier) (FlushResult, error) {
	actions, err := q.List(ctx, userID)
	if err != nil {
		return FlushResult{}, err
	}

	applied := make(map[string]bool, len(actions))
	var applyErr error
	for _, action := range actions {
		if applyErr = apply(ctx, applier, action); applyErr != nil {
			log.WithError(applyErr).WithFields(log.Fields{
				"user_id":   userID,
				"action_id": action.ID,
				"type":      action.Type,
			}).Warn("Offline action replay failed")
			break
		}
		applied[action.ID] = true
		q.markProcessed(ctx, userID, action.ID)
	}

	var remaining int
	err = q.modify(ctx, userID, func(current []models.PendingAction) []models.PendingAction {
		kept := without(current, applied)
		remaining = len(kept)
		return kept
	})
	if err != nil {
		return FlushResult{}, err
	}
	res := FlushResult{Applied: len(applied), Remaining: remaining}
	if applyErr != nil {
		res.Error = applyErr.Error()
	}
	return res, nil
}

func (q *Queue) markProcessed(ctx context.Context, userID, actionID string) {
	if q.mirror == nil {
		return
	}
	if err := q.mirror.MarkRemoteActionProcessed(ctx, userID, actionID); err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": userID, "action_id": actionID}).Warn("Failed to mark mirrored action processed")
	}
}
