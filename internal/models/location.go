package models

import (
	"math"
	"time"
)

// Location is a route point or vehicle position.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Finite reports whether both coordinates are usable numbers.
func (l Location) Finite() bool {
	return !math.IsNaN(l.Lat) && !math.IsInf(l.Lat, 0) && !math.IsNaN(l.Lng) && !math.IsInf(l.Lng, 0)
}

// isoLayout matches the timestamps the screens receive (millisecond precision, UTC).
const isoLayout = "2006-01-02T15:04:05.000Z"

// ISOTime formats t the way every API payload carries timestamps.
func ISOTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISOTime accepts full RFC 3339 timestamps and plain dates ("2024-07-10").
func ParseISOTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
