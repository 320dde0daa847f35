package models

import (
	"errors"
	"math"
)

// VehicleStatus is the operating state shown on the fleet map.
type VehicleStatus string

const (
	VehicleMoving  VehicleStatus = "moving"
	VehicleIdle    VehicleStatus = "idle"
	VehicleOffline VehicleStatus = "offline"
	VehicleOnTrip  VehicleStatus = "on-trip"
)

// Vehicle represents a fleet truck.
type Vehicle struct {
	ID       string        `json:"id"`
	OrgID    string        `json:"orgId,omitempty"`
	Plate    string        `json:"plate"`
	Model    string        `json:"model"`
	Status   VehicleStatus `json:"status"`
	Lat      float64       `json:"lat"`
	Lng      float64       `json:"lng"`
	Speed    float64       `json:"speed"`
	Heading  float64       `json:"heading"`
	LastSeen string        `json:"lastSeen"`
	DriverID string        `json:"driverId,omitempty"`
}

// Validate checks position invariants.
func (v *Vehicle) Validate() error {
	if !(Location{Lat: v.Lat, Lng: v.Lng}).Finite() {
		return errors.New("vehicle position is not finite")
	}
	if v.Speed < 0 {
		return errors.New("vehicle speed must not be negative")
	}
	if v.Heading < 0 || v.Heading >= 360 {
		return errors.New("vehicle heading must be in [0, 360)")
	}
	return nil
}

// LocationUpdate is a single GPS fix reported for a vehicle.
type LocationUpdate struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Speed   float64 `json:"speed"`
	Heading float64 `json:"heading"`
}

// Validate applies the vehicle invariants to the fix.
func (u LocationUpdate) Validate() error {
	v := Vehicle{Lat: u.Lat, Lng: u.Lng, Speed: u.Speed, Heading: u.Heading}
	return v.Validate()
}

// NormalizeHeading folds any angle into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	// Tiny negative angles round up to exactly 360 above.
	if h >= 360 {
		h = 0
	}
	return h
}
