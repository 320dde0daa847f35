package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents are read as bson.M so hand-written and seeded records with
// differing field names decode the same way.

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case bson.D:
		return m.Map(), true
	default:
		return nil, false
	}
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case primitive.A:
		return []interface{}(s)
	case []interface{}:
		return s
	case []string:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	default:
		return nil
	}
}

// lookup walks a dotted path through nested documents.
func lookup(doc bson.M, path string) interface{} {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// str returns the first non-empty string found at paths.
func str(doc bson.M, paths ...string) string {
	for _, p := range paths {
		if s, ok := lookup(doc, p).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// num returns the first non-zero number found at paths.
func num(doc bson.M, paths ...string) float64 {
	for _, p := range paths {
		if f, ok := toFloat(lookup(doc, p)); ok && f != 0 {
			return f
		}
	}
	return 0
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time(), true
	case time.Time:
		return t, true
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0), true
	default:
		return time.Time{}, false
	}
}

// isoAt formats the native timestamp at path, or now when absent.
func isoAt(doc bson.M, path string, now time.Time) string {
	if t, ok := toTime(lookup(doc, path)); ok {
		return models.ISOTime(t)
	}
	return models.ISOTime(now)
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func docID(doc bson.M) string {
	return idString(doc["_id"])
}

// vehicleStatus maps the stored fleet status onto the map status.
func vehicleStatus(raw string, speed float64) models.VehicleStatus {
	switch {
	case raw == "InUse" && speed > 0:
		return models.VehicleMoving
	case raw == "InUse":
		return models.VehicleOnTrip
	case raw == "Available":
		return models.VehicleIdle
	default:
		return models.VehicleOffline
	}
}

func mapVehicle(doc bson.M, now time.Time) models.Vehicle {
	speed := num(doc, "speed")
	plate := str(doc, "registration", "plate")
	if plate == "" {
		plate = "UNKNOWN"
	}
	model := str(doc, "model")
	if model == "" {
		model = "Unknown Model"
	}
	return models.Vehicle{
		ID:       docID(doc),
		OrgID:    str(doc, "orgId"),
		Plate:    plate,
		Model:    model,
		Status:   vehicleStatus(str(doc, "status"), speed),
		Lat:      num(doc, "lat"),
		Lng:      num(doc, "lng"),
		Speed:    speed,
		Heading:  models.NormalizeHeading(num(doc, "heading")),
		LastSeen: isoAt(doc, "lastSeen", now),
		DriverID: str(doc, "driverId"),
	}
}

// tripCode synthesizes TRK-<first six characters of the id, upper-cased>.
func tripCode(id string) string {
	if len(id) > 6 {
		id = id[:6]
	}
	return "TRK-" + strings.ToUpper(id)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func mapRoute(v interface{}) []models.Location {
	points := asSlice(v)
	route := make([]models.Location, 0, len(points))
	for _, p := range points {
		m, ok := asMap(p)
		if !ok {
			route = append(route, models.Location{})
			continue
		}
		route = append(route, models.Location{
			Lat: num(m, "latitude", "lat"),
			Lng: num(m, "longitude", "lng"),
		})
	}
	return route
}

func mapCheckpoints(v interface{}) []string {
	items := asSlice(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapTrip(doc bson.M, now time.Time) models.Trip {
	id := docID(doc)
	code := str(doc, "code")
	if code == "" {
		code = tripCode(id)
	}
	status := models.TripStatus(str(doc, "status"))
	if status == "" {
		status = models.TripDraft
	}
	return models.Trip{
		ID:          id,
		OrgID:       str(doc, "orgId"),
		Code:        code,
		Status:      status,
		VehicleID:   str(doc, "vehicleId"),
		DriverID:    str(doc, "driverId"),
		Pickup:      orDefault(str(doc, "origin.address", "pickup"), "Unknown Origin"),
		Drop:        orDefault(str(doc, "destination.address", "drop"), "Unknown Destination"),
		Customer:    orDefault(str(doc, "destination.contact.name", "customer"), "Unknown Customer"),
		StartTime:   isoAt(doc, "startTime", now),
		ETA:         isoAt(doc, "eta", now),
		DistanceKm:  num(doc, "distance", "distanceKm"),
		Cargo:       orDefault(str(doc, "cargo.description", "cargo.type", "cargo"), "Unknown Cargo"),
		Checkpoints: mapCheckpoints(doc["checkpoints"]),
		Route:       mapRoute(doc["route"]),
	}
}

func mapInvoice(doc bson.M, now time.Time) models.Invoice {
	status := models.InvoiceStatus(str(doc, "status"))
	if status == "" {
		status = models.InvoiceDraft
	}
	due := models.ISOTime(now)
	if t, ok := toTime(doc["dueDate"]); ok {
		due = models.ISOTime(t)
	} else if s := str(doc, "dueDate"); s != "" {
		due = s
	}
	return models.Invoice{
		ID:       docID(doc),
		OrgID:    str(doc, "orgId"),
		Customer: orDefault(str(doc, "customerName", "customer"), "Unknown"),
		Amount:   num(doc, "total", "amount"),
		Status:   status,
		DueDate:  due,
	}
}

func mapNotification(doc bson.M, now time.Time) models.NotificationItem {
	read, _ := doc["read"].(bool)
	return models.NotificationItem{
		ID:        docID(doc),
		UserID:    str(doc, "userId"),
		Title:     str(doc, "title"),
		Message:   str(doc, "message"),
		CreatedAt: isoAt(doc, "createdAt", now),
		Read:      read,
	}
}

func mapOrg(doc bson.M) models.Org {
	return models.Org{ID: docID(doc), Name: str(doc, "name")}
}

func mapBranch(doc bson.M, orgID string) models.Branch {
	return models.Branch{ID: docID(doc), Name: str(doc, "name"), OrgID: orgID}
}

func mapDriver(doc bson.M) models.Driver {
	return models.Driver{
		ID:     docID(doc),
		Name:   str(doc, "name"),
		Phone:  str(doc, "phone"),
		Rating: num(doc, "rating"),
	}
}

// geoPoint is the stored shape of a route point or position.
func geoPoint(l models.Location) bson.M {
	return bson.M{"latitude": l.Lat, "longitude": l.Lng}
}

// tripDocument is the stored form of a new trip. Timestamps are native.
func tripDocument(trip models.Trip, now time.Time) bson.M {
	route := make(bson.A, 0, len(trip.Route))
	for _, p := range trip.Route {
		route = append(route, geoPoint(p))
	}
	checkpoints := make(bson.A, 0, len(trip.Checkpoints))
	for _, c := range trip.Checkpoints {
		checkpoints = append(checkpoints, c)
	}
	doc := bson.M{
		"orgId":       trip.OrgID,
		"status":      string(trip.Status),
		"vehicleId":   trip.VehicleID,
		"driverId":    trip.DriverID,
		"pickup":      trip.Pickup,
		"drop":        trip.Drop,
		"customer":    trip.Customer,
		"distanceKm":  trip.DistanceKm,
		"cargo":       trip.Cargo,
		"checkpoints": checkpoints,
		"route":       route,
		"startTime":   primitive.NewDateTimeFromTime(parseOr(trip.StartTime, now)),
		"eta":         primitive.NewDateTimeFromTime(parseOr(trip.ETA, now)),
		"createdAt":   primitive.NewDateTimeFromTime(now),
		"updatedAt":   primitive.NewDateTimeFromTime(now),
	}
	if trip.Code != "" {
		doc["code"] = trip.Code
	}
	return doc
}

func parseOr(value string, fallback time.Time) time.Time {
	if t, err := models.ParseISOTime(value); err == nil {
		return t
	}
	return fallback
}
