package models

import (
	"errors"
	"fmt"
)

// TripStatus is a milestone in the delivery lifecycle of a trip.
type TripStatus string

const (
	TripDraft         TripStatus = "Draft"
	TripAssigned      TripStatus = "Assigned"
	TripAccepted      TripStatus = "Accepted"
	TripStarted       TripStatus = "Started"
	TripPickupArrived TripStatus = "PickupArrived"
	TripLoaded        TripStatus = "Loaded"
	TripInTransit     TripStatus = "InTransit"
	TripDropArrived   TripStatus = "DropArrived"
	TripPODSubmitted  TripStatus = "PODSubmitted"
	TripCompleted     TripStatus = "Completed"
)

var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrInvalidTripStatus = errors.New("invalid trip status")
)

// tripFlow lists the statuses in the only order a trip may move through them.
var tripFlow = []TripStatus{
	TripDraft,
	TripAssigned,
	TripAccepted,
	TripStarted,
	TripPickupArrived,
	TripLoaded,
	TripInTransit,
	TripDropArrived,
	TripPODSubmitted,
	TripCompleted,
}

// AllTripStatuses returns the lifecycle in order.
func AllTripStatuses() []TripStatus {
	out := make([]TripStatus, len(tripFlow))
	copy(out, tripFlow)
	return out
}

// TripStatusIndex returns the position of s in the lifecycle, or -1.
func TripStatusIndex(s TripStatus) int {
	for i, status := range tripFlow {
		if status == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the ten lifecycle statuses.
func (s TripStatus) Valid() bool {
	return TripStatusIndex(s) >= 0
}

// NextTripStatus returns the status that follows s. Completed maps to itself.
// Values outside the lifecycle are returned unchanged.
func NextTripStatus(s TripStatus) TripStatus {
	i := TripStatusIndex(s)
	if i < 0 {
		return s
	}
	if i == len(tripFlow)-1 {
		return TripCompleted
	}
	return tripFlow[i+1]
}

// CanMoveTo reports whether a trip in s may be written as next: either the
// same status again or the one directly after it. Skips and reversals fail.
func (s TripStatus) CanMoveTo(next TripStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next == s || next == NextTripStatus(s)
}

// Trip is a single shipment from pickup to drop.
type Trip struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"orgId,omitempty"`
	Code        string     `json:"code"`
	Status      TripStatus `json:"status"`
	VehicleID   string     `json:"vehicleId"`
	DriverID    string     `json:"driverId"`
	Pickup      string     `json:"pickup"`
	Drop        string     `json:"drop"`
	Customer    string     `json:"customer"`
	StartTime   string     `json:"startTime"`
	ETA         string     `json:"eta"`
	DistanceKm  float64    `json:"distanceKm"`
	Cargo       string     `json:"cargo"`
	Checkpoints []string   `json:"checkpoints"`
	Route       []Location `json:"route"`
}

// Validate checks the invariants a trip must hold before it is written.
func (t *Trip) Validate() error {
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTripStatus, t.Status)
	}
	if len(t.Route) == 1 {
		return errors.New("route needs at least an origin and a destination")
	}
	for _, p := range t.Route {
		if !p.Finite() {
			return errors.New("route point is not a finite coordinate")
		}
	}
	return nil
}

// Clone returns a copy that shares no slices with t.
func (t Trip) Clone() Trip {
	out := t
	out.Checkpoints = append([]string(nil), t.Checkpoints...)
	out.Route = append([]Location(nil), t.Route...)
	return out
}

// TripEvent is one entry of a trip's append-only history.
type TripEvent struct {
	ID          string     `json:"id"`
	TripID      string     `json:"tripId"`
	Status      TripStatus `json:"status"`
	Type        string     `json:"type"` // "status_change"
	Description string     `json:"description"`
	Timestamp   string     `json:"timestamp"`
}

// TripFilter narrows a trip listing. OrgID also selects the remote backend.
type TripFilter struct {
	OrgID    string
	Status   TripStatus
	DriverID string
}
