package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Routing(t *testing.T) {
	t.Run("off-topic message hits the guardrail", func(t *testing.T) {
		cl := Classify("what's a good pizza place near the office", false)
		assert.Equal(t, RouteGuardrail, cl.Route)
		assert.Equal(t, 0, cl.Score)
	})

	t.Run("strong manufacturing question routes to the agent", func(t *testing.T) {
		cl := Classify("show me the OEE for CNC-07 over the last 24 hours", false)
		assert.Equal(t, RouteAgent, cl.Route)
		assert.Equal(t, IntentOEESummary, cl.Intent)
		assert.GreaterOrEqual(t, cl.Score, AgentThreshold)
	})

	t.Run("definition question routes to the llm", func(t *testing.T) {
		cl := Classify("what is OEE and how is it calculated?", false)
		assert.Equal(t, RouteLLM, cl.Route)
	})

	t.Run("question lead asking for current values routes to the agent", func(t *testing.T) {
		for _, msg := range []string{
			"what's the scrap rate this shift",
			"what is our downtime on line 3 today",
			"how is the quality on CNC-07",
		} {
			cl := Classify(msg, false)
			assert.Equal(t, RouteAgent, cl.Route, "message %q", msg)
		}
	})

	t.Run("force_llm bypasses the agent but not the guardrail", func(t *testing.T) {
		cl := Classify("show me the OEE for CNC-07", true)
		assert.Equal(t, RouteLLM, cl.Route)

		cl = Classify("tell me a joke", true)
		assert.Equal(t, RouteGuardrail, cl.Route)
	})

	t.Run("weak on-topic score falls through to the llm", func(t *testing.T) {
		cl := Classify("we changed the line yesterday", false)
		assert.Equal(t, RouteLLM, cl.Route)
		assert.Greater(t, cl.Score, 0)
		assert.Less(t, cl.Score, AgentThreshold)
	})
}

func TestClassify_Intents(t *testing.T) {
	cases := map[string]string{
		"why was there so much downtime on line 3":  IntentDowntimeAnalysis,
		"what's the scrap rate this shift":          IntentQualityAnalysis,
		"any alerts firing right now?":              IntentAlertStatus,
		"show availability for the packaging line":  IntentOEESummary,
		"which machines are running":                IntentEquipmentStatus,
	}
	for msg, want := range cases {
		cl := Classify(msg, false)
		require.Equal(t, RouteAgent, cl.Route, "message %q", msg)
		assert.Equal(t, want, cl.Intent, "message %q", msg)
	}
}

func TestExtractSignals(t *testing.T) {
	t.Run("equipment codes and line numbers", func(t *testing.T) {
		sig := ExtractSignals("compare CNC-07 and PRESS-12 with line 3")
		assert.ElementsMatch(t, []string{"CNC-07", "PRESS-12", "LINE-3"}, sig.EquipmentCodes)
	})

	t.Run("explicit hour window", func(t *testing.T) {
		sig := ExtractSignals("oee for the last 8 hours")
		assert.Equal(t, 8*time.Hour, sig.Window)
		assert.Equal(t, "8h", sig.WindowLabel)
	})

	t.Run("day window", func(t *testing.T) {
		sig := ExtractSignals("downtime over the past 3 days")
		assert.Equal(t, 72*time.Hour, sig.Window)
	})

	t.Run("default window is 24h", func(t *testing.T) {
		sig := ExtractSignals("how is CNC-07 doing")
		assert.Equal(t, 24*time.Hour, sig.Window)
		assert.Equal(t, "24h", sig.WindowLabel)
	})

	t.Run("shift phrasing", func(t *testing.T) {
		sig := ExtractSignals("scrap for the night shift")
		assert.Equal(t, "night", sig.Shift)
		assert.Equal(t, 8*time.Hour, sig.Window)
	})

	t.Run("percent target", func(t *testing.T) {
		sig := ExtractSignals("is quality above 98.5% on line 2")
		assert.InDelta(t, 98.5, sig.PercentTarget, 0.001)
	})

	t.Run("metric names", func(t *testing.T) {
		sig := ExtractSignals("plot good_count vs total count")
		assert.Contains(t, sig.Metrics, "good_count")
		assert.Contains(t, sig.Metrics, "total_count")
	})
}

func TestClassify_IsDeterministic(t *testing.T) {
	msg := "show OEE for CNC-07 over the last 12 hours"
	first := Classify(msg, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(msg, false))
	}
}
