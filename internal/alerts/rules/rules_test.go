package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
	metricdomain "github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

func thresholdInput(stat metricdomain.WindowStat, windowMin int) Input {
	return Input{
		Now:           time.Now(),
		StatsByWindow: map[int][]metricdomain.WindowStat{windowMin: {stat}},
	}
}

func TestThresholdRule(t *testing.T) {
	rule := ThresholdRule{Rule: alertdomain.AlertRule{
		ID:        7,
		Name:      "low-runtime",
		Metric:    metricdomain.MetricRuntimeMin,
		Condition: alertdomain.CondLT,
		Threshold: 10,
		WindowMin: 15,
		Severity:  alertdomain.SeverityWarning,
	}}

	t.Run("fires when the window average crosses", func(t *testing.T) {
		in := thresholdInput(metricdomain.WindowStat{
			EquipmentCode: "CNC-07", Name: metricdomain.MetricRuntimeMin, Avg: 4.2, Count: 3,
		}, 15)

		findings := rule.Evaluate(in)
		require.Len(t, findings, 1)
		assert.Equal(t, int64(7), findings[0].RuleID)
		assert.Equal(t, "CNC-07", findings[0].EquipmentCode)
		assert.Equal(t, alertdomain.SeverityWarning, findings[0].Severity)
		assert.InDelta(t, 4.2, findings[0].Value, 1e-9)
	})

	t.Run("quiet when inside the threshold", func(t *testing.T) {
		in := thresholdInput(metricdomain.WindowStat{
			EquipmentCode: "CNC-07", Name: metricdomain.MetricRuntimeMin, Avg: 14, Count: 3,
		}, 15)
		assert.Empty(t, rule.Evaluate(in))
	})

	t.Run("ignores other metrics and windows", func(t *testing.T) {
		in := thresholdInput(metricdomain.WindowStat{
			EquipmentCode: "CNC-07", Name: metricdomain.MetricGoodCount, Avg: 1, Count: 3,
		}, 15)
		assert.Empty(t, rule.Evaluate(in))

		in = thresholdInput(metricdomain.WindowStat{
			EquipmentCode: "CNC-07", Name: metricdomain.MetricRuntimeMin, Avg: 1, Count: 3,
		}, 60)
		assert.Empty(t, rule.Evaluate(in))
	})

	t.Run("equipment scoping", func(t *testing.T) {
		scoped := rule
		scoped.Rule.EquipmentCode = "PRESS-12"

		in := thresholdInput(metricdomain.WindowStat{
			EquipmentCode: "CNC-07", Name: metricdomain.MetricRuntimeMin, Avg: 1, Count: 3,
		}, 15)
		assert.Empty(t, scoped.Evaluate(in))
	})
}

func TestCrossed(t *testing.T) {
	assert.True(t, crossed(alertdomain.CondGT, 2, 1))
	assert.False(t, crossed(alertdomain.CondGT, 1, 1))
	assert.True(t, crossed(alertdomain.CondGTE, 1, 1))
	assert.True(t, crossed(alertdomain.CondLT, 0, 1))
	assert.True(t, crossed(alertdomain.CondLTE, 1, 1))
	assert.False(t, crossed("bogus", 5, 1))
}

func TestStaleDataRule(t *testing.T) {
	rule := StaleDataRule{}

	in := Input{
		Now:            time.Now(),
		KnownEquipment: []string{"CNC-07", "PRESS-12"},
		StatsByWindow: map[int][]metricdomain.WindowStat{
			StaleDataWindowMin: {
				{EquipmentCode: "CNC-07", Name: metricdomain.MetricTotalCount, Count: 5},
			},
		},
	}

	findings := rule.Evaluate(in)
	require.Len(t, findings, 1)
	assert.Equal(t, "PRESS-12", findings[0].EquipmentCode)
	assert.Equal(t, alertdomain.SeverityWarning, findings[0].Severity)
	assert.Equal(t, "ingest", findings[0].Metric)
}

func TestDowntimeRule(t *testing.T) {
	rule := DowntimeRule{}
	now := time.Now()

	in := Input{
		Now: now,
		DownSince: map[string]time.Time{
			"CNC-07":   now.Add(-25 * time.Minute),
			"PRESS-12": now.Add(-2 * time.Minute),
		},
	}

	findings := rule.Evaluate(in)
	require.Len(t, findings, 1)
	assert.Equal(t, "CNC-07", findings[0].EquipmentCode)
	assert.Equal(t, alertdomain.SeverityCritical, findings[0].Severity)
	assert.InDelta(t, 25, findings[0].Value, 0.1)
}

func TestRunAll(t *testing.T) {
	now := time.Now()
	in := Input{
		Now:            now,
		KnownEquipment: []string{"CNC-07"},
		StatsByWindow:  map[int][]metricdomain.WindowStat{},
		DownSince:      map[string]time.Time{"CNC-07": now.Add(-time.Hour)},
	}

	findings := RunAll([]Rule{StaleDataRule{}, DowntimeRule{}}, in)
	assert.Len(t, findings, 2)
}

func TestPriorityScore(t *testing.T) {
	t.Run("monotone in severity", func(t *testing.T) {
		base := Finding{Metric: metricdomain.MetricRuntimeMin}

		info, warn, crit := base, base, base
		info.Severity = alertdomain.SeverityInfo
		warn.Severity = alertdomain.SeverityWarning
		crit.Severity = alertdomain.SeverityCritical

		assert.Less(t, PriorityScore(info), PriorityScore(warn))
		assert.Less(t, PriorityScore(warn), PriorityScore(crit))
	})

	t.Run("persistence contributes but is capped", func(t *testing.T) {
		f := Finding{Severity: alertdomain.SeverityWarning, Metric: "status"}
		zero := PriorityScore(f)

		f.Persistence = 3
		assert.Equal(t, zero+3, PriorityScore(f))

		f.Persistence = 50
		assert.Equal(t, zero+5, PriorityScore(f))
	})

	t.Run("status outranks generic metrics at equal severity", func(t *testing.T) {
		status := Finding{Severity: alertdomain.SeverityCritical, Metric: "status"}
		generic := Finding{Severity: alertdomain.SeverityCritical, Metric: "vibration_rms"}
		assert.Greater(t, PriorityScore(status), PriorityScore(generic))
	})
}
