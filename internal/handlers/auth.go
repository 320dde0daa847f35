package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/auth"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/session"
)

// Directory resolves organization and branch ids picked on the selection
// screens, and the stored user behind a phone number.
type Directory interface {
	FetchOrganizations(ctx context.Context) ([]models.Org, error)
	FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error)
	FetchUserByPhone(ctx context.Context, phone string) (models.User, error)
}

// AuthHandler handles the phone OTP login
type AuthHandler struct {
	authService *auth.Service
	sessions    *session.Store
	directory   Directory
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, sessions *session.Store, directory Directory) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		directory:   directory,
	}
}

type otpRequest struct {
	Phone string `json:"phone"`
}

type verifyResponse struct {
	auth.Result
	Token   string          `json:"token,omitempty"`
	Session *models.Session `json:"session,omitempty"`
}

// SendOTP starts a verification for a phone number. Failures are reported in
// the body with status 200.
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.authService.SendOTP(r.Context(), req.Phone))
}

// Verify checks the code, opens a session and issues its token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.authService.VerifyOTP(r.Context(), req.Phone, req.OTP)
	if !res.Success {
		writeJSON(w, http.StatusOK, verifyResponse{Result: res})
		return
	}

	sess := models.Session{
		LoggedIn:   true,
		UserID:     res.UserID,
		Phone:      res.Phone,
		AuthExpiry: res.ExpiresAt,
	}
	if models.IsValidRole(req.Role) {
		sess.Role = req.Role
	} else {
		h.applyStoredUser(r.Context(), &sess, &req)
	}
	if req.OrgID != "" {
		org, err := resolveOrg(r.Context(), h.directory, req.OrgID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sess.Org = &org
		if req.BranchID != "" {
			branch, err := resolveBranch(r.Context(), h.directory, req.OrgID, req.BranchID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			sess.Branch = &branch
		}
	}

	token, err := h.authService.TokenForSession(sess)
	if err != nil {
		writeError(w, r, fmt.Errorf("issue token: %w", err))
		return
	}
	sess.Token = token
	if err := h.sessions.Save(r.Context(), sess.UserID, sess); err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"user_id": sess.UserID, "role": sess.Role}).Info("User signed in")
	writeJSON(w, http.StatusOK, verifyResponse{Result: res, Token: token, Session: &sess})
}

// applyStoredUser fills the role, and any organization and branch the request
// left empty, from a registered user with the session's phone. Lookup failures
// only leave the selections to the user.
func (h *AuthHandler) applyStoredUser(ctx context.Context, sess *models.Session, req *models.VerifyRequest) {
	user, err := h.directory.FetchUserByPhone(ctx, sess.Phone)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			log.WithError(err).WithField("phone", sess.Phone).Warn("Failed to look up user")
		}
		return
	}
	sess.Role = models.RoleFromUserRole(user.Role)
	if req.OrgID == "" {
		req.OrgID, req.BranchID = user.OrgID, user.BranchID
	}
}

func resolveOrg(ctx context.Context, dir Directory, orgID string) (models.Org, error) {
	orgs, err := dir.FetchOrganizations(ctx)
	if err != nil {
		return models.Org{}, err
	}
	for _, org := range orgs {
		if org.ID == orgID {
			return org, nil
		}
	}
	return models.Org{}, fmt.Errorf("%w: unknown organization %q", errBadRequest, orgID)
}

func resolveBranch(ctx context.Context, dir Directory, orgID, branchID string) (models.Branch, error) {
	branches, err := dir.FetchBranches(ctx, orgID)
	if err != nil {
		return models.Branch{}, err
	}
	for _, b := range branches {
		if b.ID == branchID {
			return b, nil
		}
	}
	return models.Branch{}, fmt.Errorf("%w: unknown branch %q", errBadRequest, branchID)
}
