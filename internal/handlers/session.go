package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ukydev/logistics-tracker/internal/auth"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/session"
)

// SessionHandler exposes the persisted device session.
type SessionHandler struct {
	authService *auth.Service
	sessions    *session.Store
	directory   Directory
}

func NewSessionHandler(authService *auth.Service, sessions *session.Store, directory Directory) *SessionHandler {
	return &SessionHandler{authService: authService, sessions: sessions, directory: directory}
}

type sessionResponse struct {
	Valid   bool           `json:"valid"`
	Session models.Session `json:"session"`
}

// Get runs the validity check and returns the session. An expired session
// is cleared and reported as signed out.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	valid, err := h.sessions.Check(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !valid {
		writeJSON(w, http.StatusOK, sessionResponse{Valid: false})
		return
	}
	sess, err := h.sessions.Load(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Valid: true, Session: sess})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Clear(r.Context(), claims.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *SessionHandler) ToggleOffline(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	sess, err := h.sessions.ToggleOffline(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SelectRole stores the role picked on the role screen and re-issues the token.
func (h *SessionHandler) SelectRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}
	h.update(w, r, func(ctx context.Context, userID string) (models.Session, error) {
		return h.sessions.SetRole(ctx, userID, req.Role)
	})
}

func (h *SessionHandler) SelectOrg(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrgID string `json:"orgId"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.update(w, r, func(ctx context.Context, userID string) (models.Session, error) {
		org, err := resolveOrg(ctx, h.directory, req.OrgID)
		if err != nil {
			return models.Session{}, err
		}
		return h.sessions.Update(ctx, userID, func(sess *models.Session) {
			if sess.Org == nil || sess.Org.ID != org.ID {
				sess.Branch = nil
			}
			sess.Org = &org
		})
	})
}

func (h *SessionHandler) SelectBranch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BranchID string `json:"branchId"`
	}
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.update(w, r, func(ctx context.Context, userID string) (models.Session, error) {
		current, err := h.sessions.Load(ctx, userID)
		if err != nil {
			return models.Session{}, err
		}
		if current.Org == nil {
			return models.Session{}, fmt.Errorf("%w: select an organization first", errBadRequest)
		}
		branch, err := resolveBranch(ctx, h.directory, current.Org.ID, req.BranchID)
		if err != nil {
			return models.Session{}, err
		}
		return h.sessions.SetBranch(ctx, userID, branch)
	})
}

// update applies a selection and re-issues the token so its claims follow
// the session.
func (h *SessionHandler) update(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (models.Session, error)) {
	claims, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if valid, err := h.sessions.Check(ctx, claims.UserID); err != nil {
		writeError(w, r, err)
		return
	} else if !valid {
		http.Error(w, "Session expired", http.StatusUnauthorized)
		return
	}

	sess, err := apply(ctx, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.authService.TokenForSession(sess)
	if err != nil {
		writeError(w, r, fmt.Errorf("issue token: %w", err))
		return
	}
	sess.Token = token
	if err := h.sessions.Save(ctx, claims.UserID, sess); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
