package mock

import (
	"time"

	"github.com/ukydev/logistics-tracker/internal/models"
)

// RoutePolyline is the Mumbai–Pune corridor every fixture trip follows.
var RoutePolyline = []models.Location{
	{Lat: 19.076, Lng: 72.8777},
	{Lat: 19.17, Lng: 73.0},
	{Lat: 19.25, Lng: 73.1},
	{Lat: 19.35, Lng: 73.2},
}

type fixtures struct {
	orgs          []models.Org
	branches      []models.Branch
	drivers       []models.Driver
	trips         []models.Trip
	vehicles      []models.Vehicle
	invoices      []models.Invoice
	notifications []models.NotificationItem
}

func route() []models.Location {
	return append([]models.Location(nil), RoutePolyline...)
}

func newFixtures(now time.Time) fixtures {
	stamp := models.ISOTime(now)
	return fixtures{
		orgs: []models.Org{
			{ID: "org1", Name: "Apex Logistics"},
			{ID: "org2", Name: "Northlane Freight"},
		},
		branches: []models.Branch{
			{ID: "b1", Name: "Mumbai Hub", OrgID: "org1"},
			{ID: "b2", Name: "Delhi Hub", OrgID: "org1"},
			{ID: "b3", Name: "Bengaluru Yard", OrgID: "org2"},
		},
		drivers: []models.Driver{
			{ID: "d1", Name: "Arjun Singh", Phone: "+91 98765 12345", Rating: 4.8},
			{ID: "d2", Name: "Meera Iyer", Phone: "+91 98111 11223", Rating: 4.6},
		},
		trips: []models.Trip{
			{
				ID:          "t1",
				Code:        "TRK-1042",
				Status:      models.TripInTransit,
				VehicleID:   "v1",
				DriverID:    "d1",
				Pickup:      "Nhava Sheva Port",
				Drop:        "Pune DC",
				Customer:    "IndiRetail",
				StartTime:   stamp,
				ETA:         models.ISOTime(now.Add(4 * time.Hour)),
				DistanceKm:  152,
				Cargo:       "FMCG - 18 pallets",
				Checkpoints: []string{"Port Gate", "Talegaon Toll", "Chakan"},
				Route:       route(),
			},
			{
				ID:          "t2",
				Code:        "TRK-2040",
				Status:      models.TripAssigned,
				VehicleID:   "v2",
				DriverID:    "d2",
				Pickup:      "Nagpur ICD",
				Drop:        "Hyderabad DC",
				Customer:    "ElectroHub",
				StartTime:   stamp,
				ETA:         models.ISOTime(now.Add(8 * time.Hour)),
				DistanceKm:  540,
				Cargo:       "Electronics",
				Checkpoints: []string{"Wardha", "Adilabad", "Kamareddy"},
				Route:       route(),
			},
		},
		vehicles: []models.Vehicle{
			{
				ID:       "v1",
				Plate:    "MH12 AB 3945",
				Model:    "Ashok Leyland 4825",
				Status:   models.VehicleOnTrip,
				Lat:      RoutePolyline[0].Lat,
				Lng:      RoutePolyline[0].Lng,
				Speed:    42,
				Heading:  150,
				LastSeen: stamp,
				DriverID: "d1",
			},
			{
				ID:       "v2",
				Plate:    "MH14 XY 2210",
				Model:    "Tata Signa 3521",
				Status:   models.VehicleIdle,
				Lat:      19.1,
				Lng:      73.05,
				Speed:    0,
				Heading:  0,
				LastSeen: stamp,
				DriverID: "d2",
			},
		},
		invoices: []models.Invoice{
			{ID: "inv1", Customer: "IndiRetail", Amount: 54000, Status: models.InvoiceDraft, DueDate: "2024-07-10"},
			{ID: "inv2", Customer: "ElectroHub", Amount: 92000, Status: models.InvoicePaid, DueDate: "2024-07-02"},
		},
		notifications: []models.NotificationItem{
			{ID: "n1", Title: "Trip assigned", Message: "TRK-2040 assigned to you", CreatedAt: stamp},
			{ID: "n2", Title: "Document expiring", Message: "PUC expiring in 7 days", CreatedAt: stamp},
		},
	}
}
