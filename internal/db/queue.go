package db

import (
	"context"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// QueuedAction is an offline action mirrored to the remote queue.
type QueuedAction struct {
	ID        string
	UserID    string
	Type      string
	Data      map[string]interface{}
	CreatedAt string
	Processed bool
}

// AddToOfflineQueue stores an unprocessed action for userID and returns its id.
func (s *MongoStore) AddToOfflineQueue(ctx context.Context, userID, actionType string, data map[string]interface{}) (string, error) {
	return s.insert(ctx, CollOfflineActions, bson.M{
		"userId":    userID,
		"type":      actionType,
		"data":      data,
		"createdAt": s.stamp(),
		"processed": false,
	})
}

// FetchOfflineQueue returns the user's unprocessed actions.
func (s *MongoStore) FetchOfflineQueue(ctx context.Context, userID string) ([]QueuedAction, error) {
	docs, err := s.findDocs(ctx, CollOfflineActions, bson.M{"userId": userID, "processed": false})
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]QueuedAction, 0, len(docs))
	for _, doc := range docs {
		data, _ := asMap(doc["data"])
		processed, _ := doc["processed"].(bool)
		out = append(out, QueuedAction{
			ID:        docID(doc),
			UserID:    userID,
			Type:      str(doc, "type"),
			Data:      map[string]interface{}(data),
			CreatedAt: isoAt(doc, "createdAt", now),
			Processed: processed,
		})
	}
	return out, nil
}

func (s *MongoStore) MarkQueueItemProcessed(ctx context.Context, actionID string) error {
	return s.updateByID(ctx, CollOfflineActions, actionID, bson.M{"processed": true, "processedAt": s.stamp()})
}

// EnqueueRemoteAction mirrors a locally queued pending action.
func (s *MongoStore) EnqueueRemoteAction(ctx context.Context, userID string, action models.PendingAction) error {
	data := map[string]interface{}{"id": action.ID, "payload": action.Payload, "createdAt": action.CreatedAt}
	_, err := s.AddToOfflineQueue(ctx, userID, string(action.Type), data)
	return err
}

// MarkRemoteActionProcessed flags the mirrored copy of the local action
// actionID. Actions that were never mirrored are ignored.
func (s *MongoStore) MarkRemoteActionProcessed(ctx context.Context, userID, actionID string) error {
	queued, err := s.FetchOfflineQueue(ctx, userID)
	if err != nil {
		return err
	}
	for _, item := range queued {
		if id, _ := item.Data["id"].(string); id == actionID {
			return s.MarkQueueItemProcessed(ctx, item.ID)
		}
	}
	return nil
}
