package models

import "time"

// Session is the identity and role state a device keeps between restarts.
type Session struct {
	LoggedIn    bool    `json:"loggedIn"`
	UserID      string  `json:"userId,omitempty"`
	Phone       string  `json:"phoneNumber,omitempty"`
	AuthExpiry  int64   `json:"authExpiry,omitempty"` // epoch milliseconds
	Org         *Org    `json:"org,omitempty"`
	Branch      *Branch `json:"branch,omitempty"`
	Role        Role    `json:"role,omitempty"`
	OfflineMode bool    `json:"offlineMode"`
	Token       string  `json:"token,omitempty"`
}

// Expired reports whether a logged-in session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.LoggedIn && now.UnixMilli() >= s.AuthExpiry
}

// OrgID returns the selected organization id, or "".
func (s *Session) OrgID() string {
	if s.Org == nil {
		return ""
	}
	return s.Org.ID
}

// PendingActionType names what a queued offline action does when replayed.
type PendingActionType string

const (
	ActionPOD    PendingActionType = "POD"
	ActionStatus PendingActionType = "Status"
)

// PendingAction is a write that could not be confirmed while offline.
type PendingAction struct {
	ID        string                 `json:"id"`
	Type      PendingActionType      `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt string                 `json:"createdAt"`
}
