package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Routes a message can take.
const (
	RouteAgent     = "agent"      // rule-based agent answers from live data
	RouteLLM       = "llm"        // definition / open question, LLM answers
	RouteGuardrail = "guardrails" // off-topic, rejected
)

// Intents the rule-based agent understands.
const (
	IntentOEESummary       = "oee_summary"
	IntentDowntimeAnalysis = "downtime_analysis"
	IntentQualityAnalysis  = "quality_analysis"
	IntentAlertStatus      = "alert_status"
	IntentEquipmentStatus  = "equipment_status"
	IntentUnknown          = "unknown"
)

// AgentThreshold is the minimum keyword score that routes to the rule-based
// agent instead of the LLM.
const AgentThreshold = 3

// Classification is the routing decision plus everything extracted from the
// message. Exposed in API responses so the UI can show why a route was taken.
type Classification struct {
	Route   string  `json:"route"`
	Intent  string  `json:"intent"`
	Score   int     `json:"score"`
	Signals Signals `json:"signals"`
}

// Signals are the structured values pulled out of a message.
type Signals struct {
	EquipmentCodes []string      `json:"equipment_codes,omitempty"`
	Window         time.Duration `json:"-"`
	WindowLabel    string        `json:"window,omitempty"`
	Shift          string        `json:"shift,omitempty"`
	PercentTarget  float64       `json:"percent_target,omitempty"`
	Metrics        []string      `json:"metrics,omitempty"`
}

var keywordWeights = map[string]int{
	"oee": 3, "availability": 2, "performance": 2, "quality": 2,
	"downtime": 3, "down": 1, "uptime": 1, "stopped": 1,
	"scrap": 2, "defect": 2, "reject": 2, "yield": 2,
	"throughput": 2, "output": 1, "production": 2, "produced": 1,
	"alert": 3, "alarm": 2, "firing": 2, "warning": 1,
	"equipment": 2, "machine": 2, "line": 1, "cell": 1, "station": 1,
	"shift": 2, "cycle time": 2, "takt": 2, "runtime": 2,
	"maintenance": 2, "status": 1, "running": 1, "idle": 1,
}

// Signal regexes
var (
	rxEquipCode = regexp.MustCompile(`\b([A-Z]{2,6}-\d{1,4})\b`)
	rxLineNo    = regexp.MustCompile(`(?i)\bline\s+(\d{1,3})\b`)
	rxLastHours = regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s*(hour|hr|h)s?\b`)
	rxLastDays  = regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s*days?\b`)
	rxShift     = regexp.MustCompile(`(?i)\b(morning|day|evening|night)\s+shift\b`)
	rxPercent   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*%`)
)

var metricNames = []string{
	"good_count", "total_count", "runtime_min", "planned_time_min",
	"ideal_cycle_sec", "availability", "performance", "quality", "oee",
}

// Classify is deterministic and stateless. forceLLM skips the rule-based
// agent but still applies the guardrail.
func Classify(message string, forceLLM bool) Classification {
	score := Score(message)
	sig := ExtractSignals(message)

	cl := Classification{Score: score, Signals: sig, Intent: IntentUnknown}

	if score == 0 {
		cl.Route = RouteGuardrail
		return cl
	}

	if forceLLM || looksLikeDefinition(message) {
		cl.Route = RouteLLM
		return cl
	}

	if score >= AgentThreshold {
		cl.Route = RouteAgent
		cl.Intent = detectIntent(message)
		if cl.Intent == IntentUnknown {
			cl.Route = RouteLLM
		}
		return cl
	}

	cl.Route = RouteLLM
	return cl
}

// Score sums keyword weights over the message. Zero means off-topic.
func Score(message string) int {
	l := strings.ToLower(message)
	score := 0
	for kw, w := range keywordWeights {
		if strings.Contains(l, kw) {
			score += w
		}
	}
	if rxEquipCode.MatchString(message) || rxLineNo.MatchString(message) {
		score += 2
	}
	return score
}

// ExtractSignals pulls equipment codes, time windows, shifts, percent targets
// and metric names out of a message.
func ExtractSignals(message string) Signals {
	out := Signals{Window: 24 * time.Hour, WindowLabel: "24h"}
	l := strings.ToLower(message)

	for _, m := range rxEquipCode.FindAllStringSubmatch(message, -1) {
		out.EquipmentCodes = appendUnique(out.EquipmentCodes, m[1])
	}
	for _, m := range rxLineNo.FindAllStringSubmatch(message, -1) {
		out.EquipmentCodes = appendUnique(out.EquipmentCodes, "LINE-"+m[1])
	}

	if m := rxLastHours.FindStringSubmatch(l); len(m) >= 2 {
		if n := atoiSafe(m[1]); n > 0 {
			out.Window = time.Duration(n) * time.Hour
			out.WindowLabel = m[1] + "h"
		}
	} else if m := rxLastDays.FindStringSubmatch(l); len(m) >= 2 {
		if n := atoiSafe(m[1]); n > 0 {
			out.Window = time.Duration(n) * 24 * time.Hour
			out.WindowLabel = m[1] + "d"
		}
	} else if strings.Contains(l, "past week") || strings.Contains(l, "this week") {
		out.Window = 7 * 24 * time.Hour
		out.WindowLabel = "7d"
	} else if strings.Contains(l, "today") {
		out.Window = time.Since(startOfDay(time.Now()))
		out.WindowLabel = "today"
	} else if strings.Contains(l, "this shift") {
		out.Window = 8 * time.Hour
		out.WindowLabel = "shift"
	}

	if m := rxShift.FindStringSubmatch(message); len(m) == 2 {
		out.Shift = strings.ToLower(m[1])
		if out.WindowLabel == "24h" {
			out.Window = 8 * time.Hour
			out.WindowLabel = "shift"
		}
	}

	if m := rxPercent.FindStringSubmatch(message); len(m) == 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.PercentTarget = v
		}
	}

	for _, name := range metricNames {
		if strings.Contains(l, strings.ReplaceAll(name, "_", " ")) || strings.Contains(l, name) {
			out.Metrics = appendUnique(out.Metrics, name)
		}
	}

	return out
}

func detectIntent(message string) string {
	l := strings.ToLower(message)
	switch {
	case strings.Contains(l, "downtime") || strings.Contains(l, "down time") ||
		(strings.Contains(l, "down") && !strings.Contains(l, "breakdown of")):
		return IntentDowntimeAnalysis
	case strings.Contains(l, "scrap") || strings.Contains(l, "defect") ||
		strings.Contains(l, "reject") || strings.Contains(l, "yield") ||
		strings.Contains(l, "quality"):
		return IntentQualityAnalysis
	case strings.Contains(l, "alert") || strings.Contains(l, "alarm") ||
		strings.Contains(l, "firing"):
		return IntentAlertStatus
	case strings.Contains(l, "oee") || strings.Contains(l, "availability") ||
		strings.Contains(l, "performance"):
		return IntentOEESummary
	case strings.Contains(l, "status") || strings.Contains(l, "running") ||
		strings.Contains(l, "idle") || strings.Contains(l, "machine") ||
		strings.Contains(l, "equipment"):
		return IntentEquipmentStatus
	default:
		return IntentUnknown
	}
}

var defPhrases = []string{
	"define ", "definition of ", "explain ", "how do i calculate",
	"difference between", "pros and cons",
}

// Question leads that open a definition ("what is OEE") but also open
// live-data questions ("what's the scrap rate this shift"). Only treated as
// a definition when what follows asks about a concept, not current values.
var defQuestionLeads = []string{"what is ", "what's ", "how is ", "why does "}

var liveValueLeads = []string{"the ", "our ", "my ", "current ", "today"}

func looksLikeDefinition(q string) bool {
	s := strings.ToLower(strings.TrimSpace(q))
	for _, p := range defPhrases {
		if strings.HasPrefix(s, p) || strings.Contains(s, " "+p) {
			return true
		}
	}
	for _, p := range defQuestionLeads {
		idx := -1
		if strings.HasPrefix(s, p) {
			idx = 0
		} else if j := strings.Index(s, " "+p); j >= 0 {
			idx = j + 1
		}
		if idx < 0 {
			continue
		}
		if asksAboutLiveValues(s[idx+len(p):]) {
			continue
		}
		return true
	}
	return false
}

func asksAboutLiveValues(rest string) bool {
	for _, lead := range liveValueLeads {
		if strings.HasPrefix(rest, lead) {
			return true
		}
	}
	return false
}

func appendUnique(in []string, v string) []string {
	for _, x := range in {
		if x == v {
			return in
		}
	}
	return append(in, v)
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
