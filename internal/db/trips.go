package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventStatusChange = "status_change"

func tripNotFound(id string) error {
	return fmt.Errorf("%w: %w: %s", models.ErrTripNotFound, ErrNotFound, id)
}

// FetchTrips lists trips matching filter, most recent start first.
func (s *MongoStore) FetchTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	q := bson.M{}
	if filter.OrgID != "" {
		q["orgId"] = filter.OrgID
	}
	if filter.Status != "" {
		q["status"] = string(filter.Status)
	}
	if filter.DriverID != "" {
		q["driverId"] = filter.DriverID
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}})

	docs, err := s.findDocs(ctx, CollTrips, q, opts)
	if err != nil {
		return nil, err
	}
	now := s.now()
	trips := make([]models.Trip, 0, len(docs))
	for _, doc := range docs {
		trips = append(trips, mapTrip(doc, now))
	}
	return trips, nil
}

func (s *MongoStore) FetchTrip(ctx context.Context, id string) (models.Trip, error) {
	var doc bson.M
	err := s.coll(CollTrips).FindOne(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Trip{}, tripNotFound(id)
	}
	if err != nil {
		return models.Trip{}, fmt.Errorf("find trip %s: %w", id, err)
	}
	return mapTrip(doc, s.now()), nil
}

// CreateTrip inserts the trip and records its creation event.
func (s *MongoStore) CreateTrip(ctx context.Context, trip models.Trip) (string, error) {
	id, err := s.insert(ctx, CollTrips, tripDocument(trip, s.now()))
	if err != nil {
		return "", err
	}
	if err := s.appendEvent(ctx, id, trip.Status, "Trip created"); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateTripStatus stores the new status and appends the matching event.
func (s *MongoStore) UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) error {
	set := bson.M{"status": string(status), "updatedAt": s.stamp()}
	if status == models.TripCompleted {
		set["completedAt"] = s.stamp()
	}
	if err := s.updateByID(ctx, CollTrips, id, set); err != nil {
		if errors.Is(err, ErrNotFound) {
			return tripNotFound(id)
		}
		return err
	}
	return s.appendEvent(ctx, id, status, fmt.Sprintf("Status changed to %s", status))
}

// Trip events are insert-only; nothing here updates or deletes them.
func (s *MongoStore) appendEvent(ctx context.Context, tripID string, status models.TripStatus, description string) error {
	_, err := s.insert(ctx, CollTripEvents, bson.M{
		"tripId":      tripID,
		"status":      string(status),
		"timestamp":   s.stamp(),
		"type":        eventStatusChange,
		"description": description,
	})
	return err
}

// FetchTripEvents returns a trip's history, oldest first.
func (s *MongoStore) FetchTripEvents(ctx context.Context, tripID string) ([]models.TripEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	docs, err := s.findDocs(ctx, CollTripEvents, bson.M{"tripId": tripID}, opts)
	if err != nil {
		return nil, err
	}
	now := s.now()
	events := make([]models.TripEvent, 0, len(docs))
	for _, doc := range docs {
		events = append(events, models.TripEvent{
			ID:          docID(doc),
			TripID:      tripID,
			Status:      models.TripStatus(str(doc, "status")),
			Type:        str(doc, "type"),
			Description: str(doc, "description"),
			Timestamp:   isoAt(doc, "timestamp", now),
		})
	}
	return events, nil
}
