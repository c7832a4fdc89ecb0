package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	alertdomain "github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
	alertrepo "github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	"github.com/plantpulse/plantpulse-backend/internal/agent/classifier"
	"github.com/plantpulse/plantpulse-backend/internal/agent/llm"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
	metricdomain "github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
	metricrepo "github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
	metricservice "github.com/plantpulse/plantpulse-backend/internal/metrics/service"
)

// Answer is what the agent produces for one message.
type Answer struct {
	Text           string                    `json:"text"`
	Source         string                    `json:"source"` // rule | llm | guardrails
	Classification classifier.Classification `json:"classification"`
	Data           any                       `json:"data,omitempty"`
}

const guardrailText = "I can help with OEE, downtime, quality, alerts and equipment status. That question is outside what I cover."

// Agent routes messages between the rule-based intent handlers and the LLM.
type Agent struct {
	summaries *metricservice.SummaryService
	ts        *metricrepo.TimeseriesRepository
	equipment *equipment.Repo
	alerts    *alertrepo.Repo
	llm       *llm.Client
}

func NewAgent(sum *metricservice.SummaryService, ts *metricrepo.TimeseriesRepository, eq *equipment.Repo, alerts *alertrepo.Repo, llmClient *llm.Client) *Agent {
	return &Agent{summaries: sum, ts: ts, equipment: eq, alerts: alerts, llm: llmClient}
}

// Ask answers one message. forceLLM bypasses the rule-based agent.
func (a *Agent) Ask(ctx context.Context, message string, forceLLM bool) (*Answer, error) {
	cl := classifier.Classify(message, forceLLM)

	switch cl.Route {
	case classifier.RouteGuardrail:
		return &Answer{Text: guardrailText, Source: "guardrails", Classification: cl}, nil

	case classifier.RouteAgent:
		ans, err := a.answerIntent(ctx, cl)
		if err == nil {
			ans.Classification = cl
			return ans, nil
		}
		log.Printf("[agent] intent %s failed, falling back to llm: %v", cl.Intent, err)
		fallthrough

	default:
		text, err := a.askLLM(ctx, message)
		if err != nil {
			return nil, err
		}
		return &Answer{Text: text, Source: "llm", Classification: cl}, nil
	}
}

// LLMPrompt builds the prompt the streaming endpoint sends to Ollama: the
// user's question plus a compact context block with live plant state.
func (a *Agent) LLMPrompt(ctx context.Context, message string) string {
	return fmt.Sprintf("Context:\n%s\nQuestion:\n%s", a.compactContext(ctx), message)
}

func (a *Agent) askLLM(ctx context.Context, message string) (string, error) {
	return a.llm.Generate(ctx, a.LLMPrompt(ctx, message))
}

func (a *Agent) answerIntent(ctx context.Context, cl classifier.Classification) (*Answer, error) {
	switch cl.Intent {
	case classifier.IntentOEESummary:
		return a.oeeSummary(ctx, cl.Signals)
	case classifier.IntentDowntimeAnalysis:
		return a.downtimeAnalysis(ctx, cl.Signals)
	case classifier.IntentQualityAnalysis:
		return a.qualityAnalysis(ctx, cl.Signals)
	case classifier.IntentAlertStatus:
		return a.alertStatus(ctx)
	case classifier.IntentEquipmentStatus:
		return a.equipmentStatus(ctx, cl.Signals)
	default:
		return nil, fmt.Errorf("unknown intent %q", cl.Intent)
	}
}

func (a *Agent) targetCodes(ctx context.Context, sig classifier.Signals) ([]string, error) {
	if len(sig.EquipmentCodes) > 0 {
		return sig.EquipmentCodes, nil
	}
	to := time.Now()
	codes, err := a.ts.EquipmentCodesWithData(ctx, to.Add(-sig.Window), to)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (a *Agent) oeeSummary(ctx context.Context, sig classifier.Signals) (*Answer, error) {
	codes, err := a.targetCodes(ctx, sig)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return &Answer{Text: "No metric data in the requested window.", Source: "rule"}, nil
	}

	summaries := make([]metricdomain.OEESummary, 0, len(codes))
	for _, code := range codes {
		s, err := a.summaries.Summary(ctx, code, sig.Window)
		if errors.Is(err, metricdomain.ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	if len(summaries) == 0 {
		return &Answer{Text: "No metric data in the requested window.", Source: "rule"}, nil
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].OEE < summaries[j].OEE })

	var b strings.Builder
	fmt.Fprintf(&b, "OEE over the last %s:\n", sig.WindowLabel)
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s: OEE %.1f%% (availability %.1f%%, performance %.1f%%, quality %.1f%%)",
			s.EquipmentCode, s.OEE*100, s.Availability*100, s.Performance*100, s.Quality*100)
		if !s.Complete {
			b.WriteString(" [partial data]")
		}
		b.WriteString("\n")
	}
	worst := summaries[0]
	if worst.OEE < 0.60 {
		fmt.Fprintf(&b, "%s is the weakest performer at %.1f%%.", worst.EquipmentCode, worst.OEE*100)
	}

	return &Answer{Text: strings.TrimSpace(b.String()), Source: "rule", Data: summaries}, nil
}

func (a *Agent) downtimeAnalysis(ctx context.Context, sig classifier.Signals) (*Answer, error) {
	down, err := a.equipment.DownSince(ctx)
	if err != nil {
		return nil, err
	}

	to := time.Now()
	stats, err := a.ts.WindowStats(ctx, to.Add(-sig.Window), to)
	if err != nil {
		return nil, err
	}

	type downtimeRow struct {
		EquipmentCode string  `json:"equipment_code"`
		RuntimeMin    float64 `json:"runtime_min"`
		PlannedMin    float64 `json:"planned_time_min"`
		LostMin       float64 `json:"lost_min"`
		DownNow       bool    `json:"down_now"`
	}

	byCode := map[string]*downtimeRow{}
	for _, s := range stats {
		if s.Name != metricdomain.MetricRuntimeMin && s.Name != metricdomain.MetricPlannedTimeMin {
			continue
		}
		row, ok := byCode[s.EquipmentCode]
		if !ok {
			row = &downtimeRow{EquipmentCode: s.EquipmentCode}
			byCode[s.EquipmentCode] = row
		}
		total := s.Avg * float64(s.Count)
		if s.Name == metricdomain.MetricRuntimeMin {
			row.RuntimeMin = total
		} else {
			row.PlannedMin = total
		}
	}

	rows := make([]downtimeRow, 0, len(byCode))
	for code, row := range byCode {
		if len(sig.EquipmentCodes) > 0 && !contains(sig.EquipmentCodes, code) {
			continue
		}
		row.LostMin = row.PlannedMin - row.RuntimeMin
		if row.LostMin < 0 {
			row.LostMin = 0
		}
		_, row.DownNow = down[code]
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LostMin > rows[j].LostMin })

	if len(rows) == 0 && len(down) == 0 {
		return &Answer{Text: "No downtime recorded in the requested window.", Source: "rule"}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Downtime over the last %s:\n", sig.WindowLabel)
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s: %.0f min lost of %.0f min planned", r.EquipmentCode, r.LostMin, r.PlannedMin)
		if r.DownNow {
			b.WriteString(" (down right now)")
		}
		b.WriteString("\n")
	}
	for code, e := range down {
		if _, tracked := byCode[code]; !tracked {
			fmt.Fprintf(&b, "- %s: down since %s, no metrics reported\n", code, e.UpdatedAt.Format(time.RFC3339))
		}
	}

	return &Answer{Text: strings.TrimSpace(b.String()), Source: "rule", Data: rows}, nil
}

func (a *Agent) qualityAnalysis(ctx context.Context, sig classifier.Signals) (*Answer, error) {
	to := time.Now()
	stats, err := a.ts.WindowStats(ctx, to.Add(-sig.Window), to)
	if err != nil {
		return nil, err
	}

	type qualityRow struct {
		EquipmentCode string  `json:"equipment_code"`
		Good          float64 `json:"good_count"`
		Total         float64 `json:"total_count"`
		ScrapRate     float64 `json:"scrap_rate"`
	}

	byCode := map[string]*qualityRow{}
	for _, s := range stats {
		if s.Name != metricdomain.MetricGoodCount && s.Name != metricdomain.MetricTotalCount {
			continue
		}
		row, ok := byCode[s.EquipmentCode]
		if !ok {
			row = &qualityRow{EquipmentCode: s.EquipmentCode}
			byCode[s.EquipmentCode] = row
		}
		total := s.Avg * float64(s.Count)
		if s.Name == metricdomain.MetricGoodCount {
			row.Good = total
		} else {
			row.Total = total
		}
	}

	rows := make([]qualityRow, 0, len(byCode))
	for code, row := range byCode {
		if len(sig.EquipmentCodes) > 0 && !contains(sig.EquipmentCodes, code) {
			continue
		}
		if row.Total > 0 {
			row.ScrapRate = (row.Total - row.Good) / row.Total
		}
		rows = append(rows, *row)
	}
	if len(rows) == 0 {
		return &Answer{Text: "No production counts in the requested window.", Source: "rule"}, nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ScrapRate > rows[j].ScrapRate })

	var b strings.Builder
	fmt.Fprintf(&b, "Quality over the last %s:\n", sig.WindowLabel)
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s: %.0f/%.0f good, scrap rate %.2f%%\n", r.EquipmentCode, r.Good, r.Total, r.ScrapRate*100)
	}
	if sig.PercentTarget > 0 {
		for _, r := range rows {
			if (1-r.ScrapRate)*100 < sig.PercentTarget {
				fmt.Fprintf(&b, "%s is below the %.1f%% yield target.\n", r.EquipmentCode, sig.PercentTarget)
			}
		}
	}

	return &Answer{Text: strings.TrimSpace(b.String()), Source: "rule", Data: rows}, nil
}

func (a *Agent) alertStatus(ctx context.Context) (*Answer, error) {
	firing, err := a.alerts.Firing(ctx)
	if err != nil {
		return nil, err
	}
	if len(firing) == 0 {
		return &Answer{Text: "No alerts are firing right now.", Source: "rule", Data: []alertdomain.Alert{}}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d active alert(s), highest priority first:\n", len(firing))
	for _, al := range firing {
		fmt.Fprintf(&b, "- [%s] %s — %s (priority %d, fired %s)\n",
			al.Severity, al.EquipmentCode, al.Message, al.Priority, al.FiredAt.Format("15:04"))
	}

	return &Answer{Text: strings.TrimSpace(b.String()), Source: "rule", Data: firing}, nil
}

func (a *Agent) equipmentStatus(ctx context.Context, sig classifier.Signals) (*Answer, error) {
	units, err := a.equipment.List(ctx, "", "")
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	var filtered []equipment.Equipment
	for _, u := range units {
		if len(sig.EquipmentCodes) > 0 && !contains(sig.EquipmentCodes, u.Code) {
			continue
		}
		filtered = append(filtered, u)
		counts[u.Status]++
	}
	if len(filtered) == 0 {
		return &Answer{Text: "No matching equipment registered.", Source: "rule"}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d unit(s): %d running, %d idle, %d down, %d in maintenance.\n",
		len(filtered), counts[equipment.StatusRunning], counts[equipment.StatusIdle],
		counts[equipment.StatusDown], counts[equipment.StatusMaintenance])
	for _, u := range filtered {
		if u.Status == equipment.StatusDown || u.Status == equipment.StatusMaintenance {
			fmt.Fprintf(&b, "- %s (%s): %s since %s\n", u.Code, u.Name, u.Status, u.UpdatedAt.Format(time.RFC3339))
		}
	}

	return &Answer{Text: strings.TrimSpace(b.String()), Source: "rule", Data: filtered}, nil
}

// compactContext summarizes live plant state for the LLM prompt. Failures
// degrade to a smaller block rather than failing the chat.
func (a *Agent) compactContext(ctx context.Context) string {
	var b strings.Builder

	to := time.Now()
	if codes, err := a.ts.EquipmentCodesWithData(ctx, to.Add(-24*time.Hour), to); err == nil {
		b.WriteString("OEE (last 24h):\n")
		for _, code := range codes {
			s, err := a.summaries.Summary(ctx, code, 24*time.Hour)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: oee=%.2f availability=%.2f performance=%.2f quality=%.2f\n",
				code, s.OEE, s.Availability, s.Performance, s.Quality)
		}
	}

	if firing, err := a.alerts.Firing(ctx); err == nil {
		b.WriteString("\nFiring alerts:\n")
		if len(firing) == 0 {
			b.WriteString("- (none)\n")
		}
		for _, al := range firing {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", al.Severity, al.EquipmentCode, al.Message)
		}
	}

	return b.String()
}

func contains(in []string, v string) bool {
	for _, x := range in {
		if x == v {
			return true
		}
	}
	return false
}
