package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/logistics-tracker/internal/config"
	"github.com/ukydev/logistics-tracker/internal/dataservice"
	"github.com/ukydev/logistics-tracker/internal/models"
)

// DataHandler serves the screens' reads and writes through the routing shim.
type DataHandler struct {
	data *dataservice.Service
}

func NewDataHandler(data *dataservice.Service) *DataHandler {
	return &DataHandler{data: data}
}

// screenFor picks the screen a request reads for: the role's default, or an
// explicit ?screen= naming a known screen.
func (h *DataHandler) screenFor(r *http.Request, def string) string {
	if s := r.URL.Query().Get("screen"); s != "" {
		if _, ok := h.data.Flags().Screens[s]; ok {
			return s
		}
	}
	return def
}

// tenantFor returns the organization forwarded to the shim, or "" when the
// screen reads mock data.
func (h *DataHandler) tenantFor(claims *models.Claims, screen string) string {
	flags := h.data.Flags()
	if !flags.UseRemote(screen) {
		return ""
	}
	if claims.OrgID != "" {
		return claims.OrgID
	}
	return flags.OrgID
}

func byRole(claims *models.Claims, driver, fleet string) string {
	if claims.Role == models.RoleDriver {
		return driver
	}
	return fleet
}

func (h *DataHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	screen := h.screenFor(r, byRole(claims, config.ScreenDriverTrips, config.ScreenFleetTrips))
	q := r.URL.Query()
	filter := models.TripFilter{
		OrgID:    h.tenantFor(claims, screen),
		Status:   models.TripStatus(q.Get("status")),
		DriverID: q.Get("driverId"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, fmt.Errorf("%w: %q", models.ErrInvalidTripStatus, filter.Status))
		return
	}
	trips, err := h.data.FetchTrips(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, narrowTrips(trips, filter))
}

// narrowTrips applies the list filters to whatever the backend returned. The
// fixture set ignores them, so the screen filters happen here.
func narrowTrips(trips []models.Trip, filter models.TripFilter) []models.Trip {
	out := make([]models.Trip, 0, len(trips))
	for _, t := range trips {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.DriverID != "" && t.DriverID != filter.DriverID {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (h *DataHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	var trip models.Trip
	if err := readJSON(r, &trip); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if trip.Status == "" {
		trip.Status = models.TripDraft
	}
	if trip.OrgID == "" {
		trip.OrgID = h.tenantFor(claims, config.ScreenFleetTrips)
	}
	if err := trip.Validate(); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	id, err := h.data.CreateTrip(r.Context(), trip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *DataHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.data.FetchTrip(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ListTripEvents returns the status history of a trip.
func (h *DataHandler) ListTripEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.data.FetchTripEvents(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *DataHandler) UpdateTripStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	status := models.TripStatus(req.Status)
	if err := h.data.UpdateTripStatus(r.Context(), id, status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

// AdvanceTrip moves the trip to the next lifecycle status.
func (h *DataHandler) AdvanceTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.data.AdvanceTrip(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *DataHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	screen := h.screenFor(r, byRole(claims, config.ScreenDriverTracking, config.ScreenFleetLiveMap))
	vehicles, err := h.data.FetchVehicles(r.Context(), h.tenantFor(claims, screen))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *DataHandler) UpdateVehicleLocation(w http.ResponseWriter, r *http.Request) {
	var update models.LocationUpdate
	if err := readJSON(r, &update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	update.Heading = models.NormalizeHeading(update.Heading)
	if err := update.Validate(); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.data.UpdateVehicleLocation(r.Context(), mux.Vars(r)["id"], update); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DataHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	screen := h.screenFor(r, byRole(claims, config.ScreenDriverEarnings, config.ScreenFleetBilling))
	invoices, err := h.data.FetchInvoices(r.Context(), h.tenantFor(claims, screen))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (h *DataHandler) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.data.UpdateInvoiceStatus(r.Context(), id, models.InvoiceStatus(req.Status)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

func (h *DataHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	userID := ""
	if h.data.Flags().UseRemote(h.screenFor(r, config.ScreenInbox)) {
		userID = claims.UserID
	}
	items, err := h.data.FetchNotifications(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *DataHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.data.MarkNotificationAsRead(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DataHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.data.FetchOrganizations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *DataHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.data.FetchBranches(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

func (h *DataHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	drivers, err := h.data.FetchDrivers(r.Context(), h.tenantFor(claims, h.screenFor(r, config.ScreenFleetFleet)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}
