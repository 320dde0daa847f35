// Package mock is the in-process backend used when the remote backend is off
// or a call carries no tenant identifier.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
)

// Artificial latency per operation.
const (
	delayTrips         = 600 * time.Millisecond
	delayStatusUpdate  = 400 * time.Millisecond
	delayVehicles      = 500 * time.Millisecond
	delayInvoices      = 500 * time.Millisecond
	delayOrgs          = 500 * time.Millisecond
	delayNotifications = 400 * time.Millisecond
	delayMarkRead      = 200 * time.Millisecond
)

// Store owns the fixture set. Status updates mutate it; every other write
// succeeds without persisting anything.
type Store struct {
	mu         sync.Mutex
	data       fixtures
	delayScale float64
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithDelayScale multiplies the artificial latency; 0 removes it.
func WithDelayScale(scale float64) Option {
	return func(s *Store) { s.delayScale = scale }
}

// WithClock replaces time.Now for fixture timestamps and synthesized ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a store with fresh fixtures.
func NewStore(opts ...Option) *Store {
	s := &Store{delayScale: 1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.data = newFixtures(s.now())
	return s
}

// Reset restores the original fixtures.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = newFixtures(s.now())
}

func (s *Store) wait(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * s.delayScale)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchTrips returns every fixture trip. The filter is ignored.
func (s *Store) FetchTrips(ctx context.Context, _ models.TripFilter) ([]models.Trip, error) {
	if err := s.wait(ctx, delayTrips); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	trips := make([]models.Trip, 0, len(s.data.trips))
	for _, t := range s.data.trips {
		trips = append(trips, t.Clone())
	}
	return trips, nil
}

func (s *Store) FetchTrip(ctx context.Context, id string) (models.Trip, error) {
	if err := s.wait(ctx, delayTrips); err != nil {
		return models.Trip{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.data.trips {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return models.Trip{}, fmt.Errorf("%w: %s", models.ErrTripNotFound, id)
}

// CreateTrip hands back a synthetic id and keeps nothing.
func (s *Store) CreateTrip(ctx context.Context, _ models.Trip) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	log.Debug("Mock: trip created (not persisted)")
	return fmt.Sprintf("mock-trip-%d", s.now().UnixMilli()), nil
}

// UpdateTripStatus is the one write the mock keeps for the process lifetime.
func (s *Store) UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) error {
	if err := s.wait(ctx, delayStatusUpdate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.trips {
		if s.data.trips[i].ID == id {
			s.data.trips[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrTripNotFound, id)
}

// FetchTripEvents has no history to offer; status writes are not journaled.
func (s *Store) FetchTripEvents(ctx context.Context, _ string) ([]models.TripEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.TripEvent{}, nil
}

func (s *Store) FetchVehicles(ctx context.Context, _ string) ([]models.Vehicle, error) {
	if err := s.wait(ctx, delayVehicles); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Vehicle(nil), s.data.vehicles...), nil
}

func (s *Store) UpdateVehicleLocation(ctx context.Context, id string, _ models.LocationUpdate) error {
	log.WithField("vehicle_id", id).Debug("Mock: vehicle location updated (not persisted)")
	return ctx.Err()
}

func (s *Store) FetchInvoices(ctx context.Context, _ string) ([]models.Invoice, error) {
	if err := s.wait(ctx, delayInvoices); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Invoice(nil), s.data.invoices...), nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id string, _ models.InvoiceStatus) error {
	log.WithField("invoice_id", id).Debug("Mock: invoice status updated (not persisted)")
	return ctx.Err()
}

func (s *Store) FetchNotifications(ctx context.Context, _ string) ([]models.NotificationItem, error) {
	if err := s.wait(ctx, delayNotifications); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NotificationItem(nil), s.data.notifications...), nil
}

func (s *Store) MarkNotificationAsRead(ctx context.Context, id string) error {
	if err := s.wait(ctx, delayMarkRead); err != nil {
		return err
	}
	log.WithField("notification_id", id).Debug("Mock: notification marked as read (not persisted)")
	return nil
}

func (s *Store) FetchOrganizations(ctx context.Context) ([]models.Org, error) {
	if err := s.wait(ctx, delayOrgs); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Org(nil), s.data.orgs...), nil
}

func (s *Store) FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error) {
	if err := s.wait(ctx, delayOrgs); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Branch{}
	for _, b := range s.data.branches {
		if b.OrgID == orgID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) FetchDrivers(ctx context.Context, _ string) ([]models.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Driver(nil), s.data.drivers...), nil
}

// FetchUserByPhone knows no stored users.
func (s *Store) FetchUserByPhone(_ context.Context, phone string) (models.User, error) {
	return models.User{}, fmt.Errorf("%w: %s", models.ErrUserNotFound, phone)
}

func (s *Store) MarkRemoteActionProcessed(ctx context.Context, _, _ string) error {
	return ctx.Err()
}

func (s *Store) EnqueueRemoteAction(ctx context.Context, userID string, action models.PendingAction) error {
	log.WithFields(log.Fields{"user_id": userID, "action_id": action.ID}).Debug("Mock: offline action mirrored (not persisted)")
	return ctx.Err()
}

// SubscribeVehicles has no live source in the mock; the returned cancel is a no-op.
func (s *Store) SubscribeVehicles(_ context.Context, _ string, _ func([]models.Vehicle)) (func(), error) {
	return func() {}, nil
}

// SubscribeNotifications has no live source in the mock; the returned cancel is a no-op.
func (s *Store) SubscribeNotifications(_ context.Context, _ string, _ func([]models.NotificationItem)) (func(), error) {
	return func() {}, nil
}
