package equipment

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("equipment not found")
	ErrDuplicateCode = errors.New("equipment code already exists")
)

// Statuses an equipment unit can be in.
const (
	StatusRunning     = "running"
	StatusIdle        = "idle"
	StatusDown        = "down"
	StatusMaintenance = "maintenance"
)

type Equipment struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Line      string    `json:"line,omitempty"`
	Site      string    `json:"site,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusRunning, StatusIdle, StatusDown, StatusMaintenance:
		return true
	default:
		return false
	}
}
