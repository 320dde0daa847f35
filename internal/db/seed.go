package db

import (
	"context"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Helpers used by cmd/seed to populate a fresh database.

func (s *MongoStore) CreateOrganization(ctx context.Context, name string) (models.Org, error) {
	id, err := s.insert(ctx, CollOrganizations, bson.M{
		"name":      name,
		"createdAt": s.stamp(),
		"updatedAt": s.stamp(),
	})
	if err != nil {
		return models.Org{}, err
	}
	return models.Org{ID: id, Name: name}, nil
}

func (s *MongoStore) CreateBranch(ctx context.Context, orgID, name string) (models.Branch, error) {
	id, err := s.insert(ctx, CollBranches, bson.M{"orgId": orgID, "name": name})
	if err != nil {
		return models.Branch{}, err
	}
	return models.Branch{ID: id, Name: name, OrgID: orgID}, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user models.User) (string, error) {
	return s.insert(ctx, CollUsers, bson.M{
		"name":      user.Name,
		"email":     user.Email,
		"phone":     user.Phone,
		"role":      string(user.Role),
		"orgId":     user.OrgID,
		"branchId":  user.BranchID,
		"status":    "Active",
		"createdAt": s.stamp(),
		"updatedAt": s.stamp(),
	})
}

// InsertVehicle stores a vehicle using the fleet status vocabulary
// (InUse or Available) that the reader maps back to map statuses.
func (s *MongoStore) InsertVehicle(ctx context.Context, v models.Vehicle) (string, error) {
	raw := "Available"
	if v.Status == models.VehicleMoving || v.Status == models.VehicleOnTrip {
		raw = "InUse"
	}
	doc := bson.M{
		"orgId":        v.OrgID,
		"registration": v.Plate,
		"model":        v.Model,
		"status":       raw,
		"lat":          v.Lat,
		"lng":          v.Lng,
		"speed":        v.Speed,
		"heading":      v.Heading,
		"lastSeen":     s.stamp(),
		"createdAt":    s.stamp(),
		"updatedAt":    s.stamp(),
	}
	if v.DriverID != "" {
		doc["driverId"] = v.DriverID
	}
	return s.insert(ctx, CollVehicles, doc)
}

func (s *MongoStore) CreateInvoice(ctx context.Context, inv models.Invoice) (string, error) {
	due := primitive.NewDateTimeFromTime(parseOr(inv.DueDate, s.now()))
	return s.insert(ctx, CollInvoices, bson.M{
		"orgId":        inv.OrgID,
		"customerName": inv.Customer,
		"total":        inv.Amount,
		"status":       string(inv.Status),
		"dueDate":      due,
		"createdAt":    s.stamp(),
		"updatedAt":    s.stamp(),
	})
}

func (s *MongoStore) CreateNotification(ctx context.Context, n models.NotificationItem) (string, error) {
	return s.insert(ctx, CollNotifications, bson.M{
		"userId":    n.UserID,
		"title":     n.Title,
		"message":   n.Message,
		"createdAt": s.stamp(),
		"read":      false,
	})
}
