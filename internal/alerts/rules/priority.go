package rules

import (
	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
	metricdomain "github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

// PriorityScore ranks a finding for triage ordering. Higher means look first.
func PriorityScore(f Finding) int {
	base := severityWeight(f.Severity)
	kind := metricWeight(f.Metric)
	persist := f.Persistence
	if persist > 5 {
		persist = 5
	}
	return base + kind + persist
}

func severityWeight(s alertdomain.Severity) int {
	switch s {
	case alertdomain.SeverityCritical:
		return 60
	case alertdomain.SeverityWarning:
		return 35
	case alertdomain.SeverityInfo:
		return 15
	default:
		return 20
	}
}

func metricWeight(metric string) int {
	switch metric {
	case "status":
		return 25
	case metricdomain.MetricGoodCount, metricdomain.MetricTotalCount:
		return 20
	case metricdomain.MetricRuntimeMin, metricdomain.MetricPlannedTimeMin:
		return 18
	case "ingest":
		return 12
	default:
		return 10
	}
}
