package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/logistics-tracker/internal/auth"
	"github.com/ukydev/logistics-tracker/internal/dataservice"
	"github.com/ukydev/logistics-tracker/internal/middleware"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/offline"
	"github.com/ukydev/logistics-tracker/internal/session"
)

// Deps are the services the API is built on. Positions may be nil when the
// simulator is disabled.
type Deps struct {
	Auth       *auth.Service
	Sessions   *session.Store
	Data       *dataservice.Service
	Queue      *offline.Queue
	Positions  Broadcaster
	TrustProxy bool
}

// OTP endpoints allow this many requests per client per window.
const (
	otpRateLimit  = 10
	otpRateWindow = 60
)

// NewRouter registers every API route.
func NewRouter(d Deps) *mux.Router {
	authMW := middleware.NewAuthMiddleware(d.Auth)
	limiter := middleware.NewRateLimitMiddleware(d.TrustProxy)
	fleetOnly := authMW.RequireRole(models.RoleFleet)
	// Trip status moves, direct or replayed from the offline queue.
	driverWrites := authMW.RequirePermission("advance_trip")

	ah := NewAuthHandler(d.Auth, d.Sessions, d.Data)
	sh := NewSessionHandler(d.Auth, d.Sessions, d.Data)
	dh := NewDataHandler(d.Data)
	oh := NewOfflineHandler(d.Queue, d.Data)

	r := mux.NewRouter()
	r.HandleFunc("/health", health(d.Data)).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Use(limiter.RateLimit(otpRateLimit, otpRateWindow))
	authRoutes.HandleFunc("/otp", ah.SendOTP).Methods(http.MethodPost)
	authRoutes.HandleFunc("/verify", ah.Verify).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMW.Authenticate)

	api.HandleFunc("/session", sh.Get).Methods(http.MethodGet)
	api.HandleFunc("/session/logout", sh.Logout).Methods(http.MethodPost)
	api.HandleFunc("/session/offline", sh.ToggleOffline).Methods(http.MethodPost)
	api.HandleFunc("/session/role", sh.SelectRole).Methods(http.MethodPost)
	api.HandleFunc("/session/org", sh.SelectOrg).Methods(http.MethodPost)
	api.HandleFunc("/session/branch", sh.SelectBranch).Methods(http.MethodPost)

	api.HandleFunc("/trips", dh.ListTrips).Methods(http.MethodGet)
	api.Handle("/trips", fleetOnly(http.HandlerFunc(dh.CreateTrip))).Methods(http.MethodPost)
	api.HandleFunc("/trips/{id}", dh.GetTrip).Methods(http.MethodGet)
	api.Handle("/trips/{id}/status", driverWrites(http.HandlerFunc(dh.UpdateTripStatus))).Methods(http.MethodPut)
	api.HandleFunc("/trips/{id}/events", dh.ListTripEvents).Methods(http.MethodGet)
	api.Handle("/trips/{id}/advance", driverWrites(http.HandlerFunc(dh.AdvanceTrip))).Methods(http.MethodPost)

	api.HandleFunc("/vehicles", dh.ListVehicles).Methods(http.MethodGet)
	api.Handle("/vehicles/{id}/location", authMW.RequirePermission("update_location")(http.HandlerFunc(dh.UpdateVehicleLocation))).Methods(http.MethodPut)

	api.HandleFunc("/invoices", dh.ListInvoices).Methods(http.MethodGet)
	api.Handle("/invoices/{id}/status", fleetOnly(http.HandlerFunc(dh.UpdateInvoiceStatus))).Methods(http.MethodPut)

	api.HandleFunc("/notifications", dh.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", dh.MarkNotificationRead).Methods(http.MethodPost)

	api.HandleFunc("/orgs", dh.ListOrganizations).Methods(http.MethodGet)
	api.HandleFunc("/orgs/{id}/branches", dh.ListBranches).Methods(http.MethodGet)
	api.HandleFunc("/drivers", dh.ListDrivers).Methods(http.MethodGet)

	api.HandleFunc("/offline-queue", oh.List).Methods(http.MethodGet)
	api.Handle("/offline-queue", driverWrites(http.HandlerFunc(oh.Add))).Methods(http.MethodPost)
	api.HandleFunc("/offline-queue", oh.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/offline-queue/{id}", oh.Remove).Methods(http.MethodDelete)
	api.Handle("/offline-queue/flush", driverWrites(http.HandlerFunc(oh.Flush))).Methods(http.MethodPost)

	if d.Positions != nil {
		api.HandleFunc("/positions/ws", NewPositionHandler(d.Positions).Stream).Methods(http.MethodGet)
	}
	return r
}

func health(data *dataservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"remote": data.RemoteEnabled(),
			"time":   models.ISOTime(time.Now()),
		})
	}
}
