package domain

import (
	"errors"
	"time"
)

var (
	ErrRuleNotFound  = errors.New("alert rule not found")
	ErrAlertNotFound = errors.New("alert not found")
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// Conditions a threshold rule can use.
const (
	CondGT  = "gt"
	CondGTE = "gte"
	CondLT  = "lt"
	CondLTE = "lte"
)

func ValidCondition(c string) bool {
	switch c {
	case CondGT, CondGTE, CondLT, CondLTE:
		return true
	default:
		return false
	}
}

// AlertRule is a user-defined threshold over a metric window. An empty
// EquipmentCode applies the rule to every unit.
type AlertRule struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Metric        string    `json:"metric"`
	EquipmentCode string    `json:"equipment_code,omitempty"`
	Condition     string    `json:"condition"`
	Threshold     float64   `json:"threshold"`
	WindowMin     int       `json:"window_min"`
	Severity      Severity  `json:"severity"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Alert statuses.
const (
	StatusFiring       = "firing"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

type Alert struct {
	ID            string     `json:"id"`
	RuleID        int64      `json:"rule_id,omitempty"`
	RuleName      string     `json:"rule_name"`
	EquipmentCode string     `json:"equipment_code"`
	Metric        string     `json:"metric"`
	Value         float64    `json:"value"`
	Severity      Severity   `json:"severity"`
	Priority      int        `json:"priority"`
	Message       string     `json:"message"`
	Status        string     `json:"status"`
	FiredAt       time.Time  `json:"fired_at"`
	AckedAt       *time.Time `json:"acked_at,omitempty"`
	AckedBy       *string    `json:"acked_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// Event is what the evaluator publishes on the Redis channel and what the SSE
// endpoint forwards.
type Event struct {
	Type  string `json:"type"` // "firing" | "resolved"
	Alert Alert  `json:"alert"`
}

// EventChannel is the Redis pub/sub channel for alert events.
const EventChannel = "alerts:events"

type ListFilter struct {
	Status        string
	Severity      string
	EquipmentCode string
	Limit         int
	Offset        int
}
