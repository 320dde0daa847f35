package db

import (
	"context"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func vehicleQuery(orgID string) bson.M {
	if orgID == "" {
		return bson.M{}
	}
	return bson.M{"orgId": orgID}
}

// FetchVehicles lists the vehicles of an organization, or all when orgID is empty.
func (s *MongoStore) FetchVehicles(ctx context.Context, orgID string) ([]models.Vehicle, error) {
	docs, err := s.findDocs(ctx, CollVehicles, vehicleQuery(orgID))
	if err != nil {
		return nil, err
	}
	now := s.now()
	vehicles := make([]models.Vehicle, 0, len(docs))
	for _, doc := range docs {
		vehicles = append(vehicles, mapVehicle(doc, now))
	}
	return vehicles, nil
}

// UpdateVehicleLocation moves the vehicle and appends a location-history record.
func (s *MongoStore) UpdateVehicleLocation(ctx context.Context, id string, update models.LocationUpdate) error {
	err := s.updateByID(ctx, CollVehicles, id, bson.M{
		"lat":      update.Lat,
		"lng":      update.Lng,
		"speed":    update.Speed,
		"heading":  update.Heading,
		"lastSeen": s.stamp(),
	})
	if err != nil {
		return err
	}
	_, err = s.insert(ctx, CollLocationHistory, bson.M{
		"vehicleId": id,
		"position":  geoPoint(models.Location{Lat: update.Lat, Lng: update.Lng}),
		"speed":     update.Speed,
		"heading":   update.Heading,
		"timestamp": s.stamp(),
	})
	return err
}
