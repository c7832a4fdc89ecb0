package rules

import (
	"fmt"

	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
)

// StaleDataWindowMin is how long an equipment unit may go silent before the
// stale-data rule fires.
const StaleDataWindowMin = 15

// StaleDataRule fires for registered equipment that reported no samples at
// all inside the stale window. A dead sensor looks exactly like a perfect
// shift on the dashboard, so this is a warning by default.
type StaleDataRule struct{}

func (StaleDataRule) Name() string { return "stale-data" }

func (r StaleDataRule) Evaluate(in Input) []Finding {
	reported := map[string]bool{}
	for _, s := range in.StatsByWindow[StaleDataWindowMin] {
		if s.Count > 0 {
			reported[s.EquipmentCode] = true
		}
	}

	var out []Finding
	for _, code := range in.KnownEquipment {
		if reported[code] {
			continue
		}
		out = append(out, Finding{
			RuleName:      r.Name(),
			EquipmentCode: code,
			Metric:        "ingest",
			Severity:      alertdomain.SeverityWarning,
			Message:       fmt.Sprintf("%s: no metric samples for %d minutes", code, StaleDataWindowMin),
		})
	}
	return out
}
