package rules

import (
	"fmt"
	"time"

	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
)

// DowntimeThreshold is how long equipment may stay in status "down" before
// the downtime rule escalates.
const DowntimeThreshold = 10 * time.Minute

// DowntimeRule fires for equipment down longer than the threshold.
type DowntimeRule struct{}

func (DowntimeRule) Name() string { return "downtime" }

func (r DowntimeRule) Evaluate(in Input) []Finding {
	var out []Finding
	for code, since := range in.DownSince {
		downFor := in.Now.Sub(since)
		if downFor < DowntimeThreshold {
			continue
		}
		out = append(out, Finding{
			RuleName:      r.Name(),
			EquipmentCode: code,
			Metric:        "status",
			Value:         downFor.Minutes(),
			Severity:      alertdomain.SeverityCritical,
			Message:       fmt.Sprintf("%s: down for %s", code, downFor.Round(time.Minute)),
		})
	}
	return out
}
