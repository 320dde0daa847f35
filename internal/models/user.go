package models

import "errors"

// ErrUserNotFound is returned when no stored user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// Role is the app role a session runs under.
type Role string

const (
	RoleDriver Role = "Driver"
	RoleFleet  Role = "Fleet"
)

// UserRole is the role stored on user documents.
type UserRole string

const (
	UserRoleDriver       UserRole = "Driver"
	UserRoleFleetManager UserRole = "FleetManager"
)

// RoleFromUserRole maps a stored user role to the app role.
func RoleFromUserRole(r UserRole) Role {
	if r == UserRoleFleetManager {
		return RoleFleet
	}
	return RoleDriver
}

// User is a member of an organization.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Role     UserRole `json:"role"`
	OrgID    string   `json:"orgId"`
	BranchID string   `json:"branchId"`
}

// VerifyRequest completes the phone OTP login.
type VerifyRequest struct {
	Phone    string `json:"phone"`
	OTP      string `json:"otp"`
	Role     Role   `json:"role"`
	OrgID    string `json:"orgId"`
	BranchID string `json:"branchId"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Phone    string `json:"phone"`
	Role     Role   `json:"role"`
	OrgID    string `json:"org_id"`
	BranchID string `json:"branch_id"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleDriver, RoleFleet:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role may perform a specific action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleFleet:
		return action != "advance_trip"
	case RoleDriver:
		return action == "view_trips" || action == "advance_trip" ||
			action == "update_location" || action == "view_notifications" ||
			action == "view_vehicles"
	default:
		return false
	}
}
