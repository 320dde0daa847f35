package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/offline"
)

// OfflineHandler manages the caller's queue of actions taken without connectivity.
type OfflineHandler struct {
	queue   *offline.Queue
	applier offline.Applier
}

func NewOfflineHandler(queue *offline.Queue, applier offline.Applier) *OfflineHandler {
	return &OfflineHandler{queue: queue, applier: applier}
}

func (h *OfflineHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	actions, err := h.queue.List(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *OfflineHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req struct {
		Type    models.PendingActionType `json:"type"`
		Payload map[string]interface{}   `json:"payload"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action, err := h.queue.Add(r.Context(), claims.UserID, req.Type, req.Payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, action)
}

// Remove drops one action when the path names it, otherwise the whole queue.
func (h *OfflineHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	var err error
	if id := mux.Vars(r)["id"]; id != "" {
		err = h.queue.Remove(r.Context(), claims.UserID, id)
	} else {
		err = h.queue.Clear(r.Context(), claims.UserID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OfflineHandler) Flush(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	res, err := h.queue.Flush(r.Context(), claims.UserID, h.applier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"user_id": claims.UserID, "applied": res.Applied, "remaining": res.Remaining}).Info("Offline queue flushed")
	writeJSON(w, http.StatusOK, res)
}
