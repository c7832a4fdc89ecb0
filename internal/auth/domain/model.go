package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// Roles, in increasing order of privilege.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// User represents a user in the application.
// Firebase UID is the primary identifier.
type User struct {
	ID          string    `json:"id"`
	FirebaseUID string    `json:"firebase_uid"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	Site        *string   `json:"site,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleLevel maps a role to a comparable privilege level. Unknown roles rank
// below viewer so a bad value never grants access.
func RoleLevel(role string) int {
	switch role {
	case RoleAdmin:
		return 3
	case RoleOperator:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

func ValidRole(role string) bool {
	return RoleLevel(role) > 0
}
