package rules

import (
	"time"

	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
	metricdomain "github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

// Finding is one condition a rule observed. The evaluator turns findings into
// alerts (after dedupe) and resolves alerts whose finding disappeared.
type Finding struct {
	RuleID        int64
	RuleName      string
	EquipmentCode string
	Metric        string
	Value         float64
	Severity      alertdomain.Severity
	Message       string
	// Persistence counts how many consecutive evaluations saw this finding.
	// Filled in by the evaluator, feeds the priority score.
	Persistence int
}

// Key identifies a finding for dedupe: one alert per rule+equipment at a time.
func (f Finding) Key() string {
	return f.RuleName + "|" + f.EquipmentCode
}

// Input is the evaluation snapshot handed to every rule.
type Input struct {
	Now time.Time
	// StatsByWindow maps a window in minutes to per-equipment/metric
	// aggregates over that trailing window.
	StatsByWindow map[int][]metricdomain.WindowStat
	// KnownEquipment lists every registered equipment code.
	KnownEquipment []string
	// DownSince maps codes of equipment currently in status "down" to the
	// time the status was last set.
	DownSince map[string]time.Time
}

// Rule is one alert condition detector.
type Rule interface {
	Name() string
	Evaluate(in Input) []Finding
}

// RunAll evaluates every rule against the snapshot.
func RunAll(rs []Rule, in Input) []Finding {
	var out []Finding
	for _, r := range rs {
		out = append(out, r.Evaluate(in)...)
	}
	return out
}
