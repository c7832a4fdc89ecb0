package rules

import (
	"fmt"

	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
)

// ThresholdRule fires when a metric's window average crosses a user-defined
// threshold.
type ThresholdRule struct {
	Rule alertdomain.AlertRule
}

func (r ThresholdRule) Name() string { return r.Rule.Name }

func (r ThresholdRule) Evaluate(in Input) []Finding {
	stats := in.StatsByWindow[r.Rule.WindowMin]

	var out []Finding
	for _, s := range stats {
		if s.Name != r.Rule.Metric {
			continue
		}
		if r.Rule.EquipmentCode != "" && s.EquipmentCode != r.Rule.EquipmentCode {
			continue
		}
		if !crossed(r.Rule.Condition, s.Avg, r.Rule.Threshold) {
			continue
		}

		out = append(out, Finding{
			RuleID:        r.Rule.ID,
			RuleName:      r.Rule.Name,
			EquipmentCode: s.EquipmentCode,
			Metric:        r.Rule.Metric,
			Value:         s.Avg,
			Severity:      r.Rule.Severity,
			Message: fmt.Sprintf("%s: %s avg %.2f %s threshold %.2f over %dm",
				s.EquipmentCode, r.Rule.Metric, s.Avg, r.Rule.Condition, r.Rule.Threshold, r.Rule.WindowMin),
		})
	}
	return out
}

func crossed(cond string, value, threshold float64) bool {
	switch cond {
	case alertdomain.CondGT:
		return value > threshold
	case alertdomain.CondGTE:
		return value >= threshold
	case alertdomain.CondLT:
		return value < threshold
	case alertdomain.CondLTE:
		return value <= threshold
	default:
		return false
	}
}
