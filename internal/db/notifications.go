package db

import (
	"context"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func notificationQuery(userID string) (bson.M, *options.FindOptions) {
	return bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

// FetchNotifications lists a user's notifications, newest first.
func (s *MongoStore) FetchNotifications(ctx context.Context, userID string) ([]models.NotificationItem, error) {
	q, opts := notificationQuery(userID)
	docs, err := s.findDocs(ctx, CollNotifications, q, opts)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]models.NotificationItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, mapNotification(doc, now))
	}
	return items, nil
}

func (s *MongoStore) MarkNotificationAsRead(ctx context.Context, id string) error {
	return s.updateByID(ctx, CollNotifications, id, bson.M{"read": true, "readAt": s.stamp()})
}
