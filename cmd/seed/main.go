package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/config"
	"github.com/ukydev/logistics-tracker/internal/db"
	mockstore "github.com/ukydev/logistics-tracker/internal/mock"
	"github.com/ukydev/logistics-tracker/internal/models"
	"gopkg.in/yaml.v3"
)

// Seeder is the part of the remote store that populates a fresh database.
type Seeder interface {
	CreateOrganization(ctx context.Context, name string) (models.Org, error)
	CreateBranch(ctx context.Context, orgID, name string) (models.Branch, error)
	CreateUser(ctx context.Context, user models.User) (string, error)
	InsertVehicle(ctx context.Context, v models.Vehicle) (string, error)
	CreateTrip(ctx context.Context, trip models.Trip) (string, error)
	CreateInvoice(ctx context.Context, inv models.Invoice) (string, error)
	CreateNotification(ctx context.Context, n models.NotificationItem) (string, error)
}

// FixtureSource is the read side of the fixture store.
type FixtureSource interface {
	FetchOrganizations(ctx context.Context) ([]models.Org, error)
	FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error)
	FetchVehicles(ctx context.Context, orgID string) ([]models.Vehicle, error)
	FetchTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error)
	FetchInvoices(ctx context.Context, orgID string) ([]models.Invoice, error)
	FetchNotifications(ctx context.Context, userID string) ([]models.NotificationItem, error)
}

var (
	errNoFixtureOrgs     = errors.New("fixture set has no organizations")
	errNoFixtureBranches = errors.New("fixture organization has no branches")
)

// seed copies the fixture data set into the database under one organization
// and returns flags pointing the tracker at it.
func seed(ctx context.Context, s Seeder, fixtures FixtureSource) (config.FeatureFlags, error) {
	flags := config.DefaultFeatureFlags()

	orgs, err := fixtures.FetchOrganizations(ctx)
	if err != nil {
		return flags, fmt.Errorf("load fixture organizations: %w", err)
	}
	if len(orgs) == 0 {
		return flags, errNoFixtureOrgs
	}
	org, err := s.CreateOrganization(ctx, orgs[0].Name)
	if err != nil {
		return flags, fmt.Errorf("create organization: %w", err)
	}
	branches, err := fixtures.FetchBranches(ctx, orgs[0].ID)
	if err != nil {
		return flags, fmt.Errorf("load fixture branches: %w", err)
	}
	if len(branches) == 0 {
		return flags, errNoFixtureBranches
	}
	branch, err := s.CreateBranch(ctx, org.ID, branches[0].Name)
	if err != nil {
		return flags, fmt.Errorf("create branch: %w", err)
	}

	driverID, err := s.CreateUser(ctx, models.User{
		Name:     "Test Driver",
		Email:    "driver@example.com",
		Phone:    "+919876512345",
		Role:     models.UserRoleDriver,
		OrgID:    org.ID,
		BranchID: branch.ID,
	})
	if err != nil {
		return flags, fmt.Errorf("create driver: %w", err)
	}
	managerID, err := s.CreateUser(ctx, models.User{
		Name:     "Test Fleet Manager",
		Email:    "manager@example.com",
		Phone:    "+919876500000",
		Role:     models.UserRoleFleetManager,
		OrgID:    org.ID,
		BranchID: branch.ID,
	})
	if err != nil {
		return flags, fmt.Errorf("create fleet manager: %w", err)
	}

	vehicles, err := fixtures.FetchVehicles(ctx, "")
	if err != nil {
		return flags, fmt.Errorf("load fixture vehicles: %w", err)
	}
	vehicleIDs := map[string]string{}
	for _, v := range vehicles {
		v.OrgID = org.ID
		v.DriverID = driverID
		id, err := s.InsertVehicle(ctx, v)
		if err != nil {
			return flags, fmt.Errorf("insert vehicle %s: %w", v.Plate, err)
		}
		vehicleIDs[v.ID] = id
	}

	trips, err := fixtures.FetchTrips(ctx, models.TripFilter{})
	if err != nil {
		return flags, fmt.Errorf("load fixture trips: %w", err)
	}
	for _, trip := range trips {
		trip.OrgID = org.ID
		trip.DriverID = driverID
		trip.VehicleID = vehicleIDs[trip.VehicleID]
		if _, err := s.CreateTrip(ctx, trip); err != nil {
			return flags, fmt.Errorf("create trip %s: %w", trip.Code, err)
		}
	}

	invoices, err := fixtures.FetchInvoices(ctx, "")
	if err != nil {
		return flags, fmt.Errorf("load fixture invoices: %w", err)
	}
	for _, inv := range invoices {
		inv.OrgID = org.ID
		if _, err := s.CreateInvoice(ctx, inv); err != nil {
			return flags, fmt.Errorf("create invoice: %w", err)
		}
	}

	notifications, err := fixtures.FetchNotifications(ctx, "")
	if err != nil {
		return flags, fmt.Errorf("load fixture notifications: %w", err)
	}
	for _, n := range notifications {
		n.UserID = driverID
		if _, err := s.CreateNotification(ctx, n); err != nil {
			return flags, fmt.Errorf("create notification: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"org_id":        org.ID,
		"vehicles":      len(vehicles),
		"trips":         len(trips),
		"invoices":      len(invoices),
		"notifications": len(notifications),
	}).Info("Database seeded")

	flags.Enabled = true
	flags.OrgID = org.ID
	flags.TestDriverID = driverID
	flags.TestManagerID = managerID
	return flags, nil
}

// writeFlags prints a feature-flag file for FEATURE_FLAGS_FILE.
func writeFlags(w io.Writer, flags config.FeatureFlags) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(flags); err != nil {
		return err
	}
	return enc.Close()
}

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := db.NewMongoStore(client.Database(cfg.MongoDB))
	flags, err := seed(ctx, store, mockstore.NewStore(mockstore.WithDelayScale(0)))
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	if err := writeFlags(os.Stdout, flags); err != nil {
		log.WithError(err).Fatal("Failed to print feature flags")
	}
}
