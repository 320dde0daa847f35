// Package dataservice routes every data operation to the mock store or the
// remote document store.
package dataservice

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/config"
	"github.com/ukydev/logistics-tracker/internal/models"
)

// ErrTripNotFound is returned when neither backend has the trip.
var ErrTripNotFound = models.ErrTripNotFound

// Backend is the contract shared by the mock and remote stores.
type Backend interface {
	FetchTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error)
	FetchTrip(ctx context.Context, id string) (models.Trip, error)
	CreateTrip(ctx context.Context, trip models.Trip) (string, error)
	UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) error
	FetchTripEvents(ctx context.Context, tripID string) ([]models.TripEvent, error)

	FetchVehicles(ctx context.Context, orgID string) ([]models.Vehicle, error)
	UpdateVehicleLocation(ctx context.Context, id string, update models.LocationUpdate) error

	FetchInvoices(ctx context.Context, orgID string) ([]models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error

	FetchNotifications(ctx context.Context, userID string) ([]models.NotificationItem, error)
	MarkNotificationAsRead(ctx context.Context, id string) error

	FetchOrganizations(ctx context.Context) ([]models.Org, error)
	FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error)
	FetchDrivers(ctx context.Context, orgID string) ([]models.Driver, error)
	FetchUserByPhone(ctx context.Context, phone string) (models.User, error)

	EnqueueRemoteAction(ctx context.Context, userID string, action models.PendingAction) error
	MarkRemoteActionProcessed(ctx context.Context, userID, actionID string) error

	SubscribeVehicles(ctx context.Context, orgID string, fn func([]models.Vehicle)) (func(), error)
	SubscribeNotifications(ctx context.Context, userID string, fn func([]models.NotificationItem)) (func(), error)
}

// Service is the data routing shim. It holds both backends and picks one per
// call: remote when the master flag is on and the call names a tenant or
// entity, mock otherwise.
type Service struct {
	mock   Backend
	remote Backend
	flags  config.FeatureFlags
}

// New builds the shim. A nil remote, or a disabled master flag, yields a
// mock-only service.
func New(flags config.FeatureFlags, mock, remote Backend) *Service {
	if !flags.Enabled {
		remote = nil
	}
	return &Service{mock: mock, remote: remote, flags: flags}
}

// Flags returns the flags the service was built with.
func (s *Service) Flags() config.FeatureFlags {
	return s.flags
}

// RemoteEnabled reports whether any call can reach the remote store.
func (s *Service) RemoteEnabled() bool {
	return s.remote != nil
}

func (s *Service) backendFor(op, id string) Backend {
	return s.route(op, id, id != "")
}

func (s *Service) route(op, id string, identified bool) Backend {
	if s.remote != nil && identified {
		log.WithFields(log.Fields{"op": op, "id": id, "backend": "remote"}).Debug("Routing data call")
		return s.remote
	}
	log.WithFields(log.Fields{"op": op, "id": id, "backend": "mock"}).Debug("Routing data call")
	return s.mock
}

func (s *Service) FetchTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	return s.backendFor("fetchTrips", filter.OrgID).FetchTrips(ctx, filter)
}

// FetchTrip asks the remote store first and falls back to the mock fixtures
// when the remote does not have the trip.
func (s *Service) FetchTrip(ctx context.Context, id string) (models.Trip, error) {
	if s.remote != nil && id != "" {
		trip, err := s.remote.FetchTrip(ctx, id)
		if err == nil {
			return trip, nil
		}
		if !errors.Is(err, models.ErrTripNotFound) {
			return models.Trip{}, err
		}
		log.WithField("trip_id", id).Debug("Trip not in remote store, trying mock")
	}
	return s.mock.FetchTrip(ctx, id)
}

func (s *Service) CreateTrip(ctx context.Context, trip models.Trip) (string, error) {
	if err := trip.Validate(); err != nil {
		return "", err
	}
	return s.backendFor("createTrip", trip.OrgID).CreateTrip(ctx, trip)
}

// UpdateTripStatus writes status when it repeats the trip's current status or
// is the one that follows it. Skips and reversals fail with
// ErrInvalidTripStatus.
func (s *Service) UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidTripStatus, status)
	}
	trip, err := s.FetchTrip(ctx, id)
	if err != nil {
		return err
	}
	if !trip.Status.CanMoveTo(status) {
		return fmt.Errorf("%w: %s cannot move to %s", models.ErrInvalidTripStatus, trip.Status, status)
	}
	return s.writeTripStatus(ctx, id, status)
}

func (s *Service) writeTripStatus(ctx context.Context, id string, status models.TripStatus) error {
	return s.backendFor("updateTripStatus", id).UpdateTripStatus(ctx, id, status)
}

// AdvanceTrip moves a trip one stage along the lifecycle and returns it as
// persisted. A completed trip is returned unchanged.
func (s *Service) AdvanceTrip(ctx context.Context, id string) (models.Trip, error) {
	trip, err := s.FetchTrip(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	next := models.NextTripStatus(trip.Status)
	if next == trip.Status {
		return trip, nil
	}
	if err := s.writeTripStatus(ctx, id, next); err != nil {
		return models.Trip{}, fmt.Errorf("advance trip %s: %w", id, err)
	}
	trip.Status = next
	return trip, nil
}

// FetchTripEvents returns the trip's status history, oldest first.
func (s *Service) FetchTripEvents(ctx context.Context, tripID string) ([]models.TripEvent, error) {
	return s.backendFor("fetchTripEvents", tripID).FetchTripEvents(ctx, tripID)
}

func (s *Service) FetchVehicles(ctx context.Context, orgID string) ([]models.Vehicle, error) {
	return s.backendFor("fetchVehicles", orgID).FetchVehicles(ctx, orgID)
}

func (s *Service) UpdateVehicleLocation(ctx context.Context, id string, update models.LocationUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	return s.backendFor("updateVehicleLocation", id).UpdateVehicleLocation(ctx, id, update)
}

func (s *Service) FetchInvoices(ctx context.Context, orgID string) ([]models.Invoice, error) {
	return s.backendFor("fetchInvoices", orgID).FetchInvoices(ctx, orgID)
}

func (s *Service) UpdateInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidInvoiceTransition, status)
	}
	return s.backendFor("updateInvoiceStatus", id).UpdateInvoiceStatus(ctx, id, status)
}

func (s *Service) FetchNotifications(ctx context.Context, userID string) ([]models.NotificationItem, error) {
	return s.backendFor("fetchNotifications", userID).FetchNotifications(ctx, userID)
}

func (s *Service) MarkNotificationAsRead(ctx context.Context, id string) error {
	return s.backendFor("markNotificationAsRead", id).MarkNotificationAsRead(ctx, id)
}

// FetchOrganizations has no tenant identifier; the master flag alone decides.
func (s *Service) FetchOrganizations(ctx context.Context) ([]models.Org, error) {
	return s.route("fetchOrganizations", "", true).FetchOrganizations(ctx)
}

func (s *Service) FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error) {
	return s.backendFor("fetchBranches", orgID).FetchBranches(ctx, orgID)
}

func (s *Service) FetchDrivers(ctx context.Context, orgID string) ([]models.Driver, error) {
	return s.backendFor("fetchDrivers", orgID).FetchDrivers(ctx, orgID)
}

// FetchUserByPhone finds the stored user behind a phone number.
func (s *Service) FetchUserByPhone(ctx context.Context, phone string) (models.User, error) {
	return s.backendFor("fetchUserByPhone", phone).FetchUserByPhone(ctx, phone)
}

func (s *Service) EnqueueRemoteAction(ctx context.Context, userID string, action models.PendingAction) error {
	return s.backendFor("enqueueRemoteAction", userID).EnqueueRemoteAction(ctx, userID, action)
}

// MarkRemoteActionProcessed flags the mirrored copy of a replayed action.
func (s *Service) MarkRemoteActionProcessed(ctx context.Context, userID, actionID string) error {
	return s.backendFor("markRemoteActionProcessed", userID).MarkRemoteActionProcessed(ctx, userID, actionID)
}

// SubscribeVehicles streams vehicle snapshots for an organization until the
// returned cancel func is called or ctx ends.
func (s *Service) SubscribeVehicles(ctx context.Context, orgID string, fn func([]models.Vehicle)) (func(), error) {
	return s.backendFor("subscribeVehicles", orgID).SubscribeVehicles(ctx, orgID, fn)
}

func (s *Service) SubscribeNotifications(ctx context.Context, userID string, fn func([]models.NotificationItem)) (func(), error) {
	return s.backendFor("subscribeNotifications", userID).SubscribeNotifications(ctx, userID, fn)
}
