package models

import "time"

// PositionTelemetry is the message exchanged on the MQTT position topics.
type PositionTelemetry struct {
	VehicleID string    `json:"vehicle_id"`
	Timestamp time.Time `json:"timestamp"`
	Location  Location  `json:"location"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Status    string    `json:"status,omitempty"`
}

// Update converts the message into the fix applied to the vehicle.
func (p PositionTelemetry) Update() LocationUpdate {
	return LocationUpdate{
		Lat:     p.Location.Lat,
		Lng:     p.Location.Lng,
		Speed:   p.Speed,
		Heading: NormalizeHeading(p.Heading),
	}
}
