package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// matchField keeps change events whose document has field == value. Deletes
// carry no document and always pass so removals reach subscribers.
func matchField(field, value string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "fullDocument." + field, Value: value}},
			bson.D{{Key: "operationType", Value: "delete"}},
		}}}}},
	}
}

// watch delivers the current snapshot, then a fresh one after every change
// on the collection, until the returned cancel func is called or ctx ends.
func (s *MongoStore) watch(ctx context.Context, name string, pipeline mongo.Pipeline, push func(context.Context) error) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.coll(name).Watch(ctx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", name, err)
	}
	if err := push(ctx); err != nil {
		_ = stream.Close(context.Background())
		cancel()
		return nil, err
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			if err := push(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).WithField("collection", name).Warn("Failed to refresh subscription snapshot")
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.WithError(err).WithField("collection", name).Warn("Change stream closed")
		}
	}()
	return cancel, nil
}

// SubscribeVehicles pushes the organization's vehicles on every change.
func (s *MongoStore) SubscribeVehicles(ctx context.Context, orgID string, fn func([]models.Vehicle)) (func(), error) {
	return s.watch(ctx, CollVehicles, matchField("orgId", orgID), func(ctx context.Context) error {
		vehicles, err := s.FetchVehicles(ctx, orgID)
		if err != nil {
			return err
		}
		fn(vehicles)
		return nil
	})
}

// SubscribeNotifications pushes the user's notifications on every change.
func (s *MongoStore) SubscribeNotifications(ctx context.Context, userID string, fn func([]models.NotificationItem)) (func(), error) {
	return s.watch(ctx, CollNotifications, matchField("userId", userID), func(ctx context.Context) error {
		items, err := s.FetchNotifications(ctx, userID)
		if err != nil {
			return err
		}
		fn(items)
		return nil
	})
}
