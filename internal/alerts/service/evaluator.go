package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
	"github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	"github.com/plantpulse/plantpulse-backend/internal/alerts/rules"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
	metricdomain "github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
	metricrepo "github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
)

// equipmentSource is the slice of the equipment registry the evaluator reads.
type equipmentSource interface {
	List(ctx context.Context, site, line string) ([]equipment.Equipment, error)
	DownSince(ctx context.Context) (map[string]equipment.Equipment, error)
}

// Evaluator runs the rule set on a schedule, turns findings into alerts and
// auto-resolves alerts whose finding cleared. Events go out over Redis pub/sub
// so the SSE endpoint can fan them out without polling.
type Evaluator struct {
	alerts    *repository.Repo
	ts        *metricrepo.TimeseriesRepository
	equipment equipmentSource
	rdb       *redis.Client

	// persistence remembers how many consecutive runs a finding key was seen.
	persistence map[string]int
}

func NewEvaluator(alerts *repository.Repo, ts *metricrepo.TimeseriesRepository, eq equipmentSource, rdb *redis.Client) *Evaluator {
	return &Evaluator{
		alerts:      alerts,
		ts:          ts,
		equipment:   eq,
		rdb:         rdb,
		persistence: map[string]int{},
	}
}

// EvaluateOnce runs a full evaluation pass. Called by the scheduler and by the
// worker command; safe to call manually.
func (e *Evaluator) EvaluateOnce(ctx context.Context) error {
	now := time.Now().UTC()

	enabled, err := e.alerts.ListRules(ctx, true)
	if err != nil {
		return err
	}

	in, err := e.buildInput(ctx, now, enabled)
	if err != nil {
		return err
	}

	ruleSet := []rules.Rule{rules.StaleDataRule{}, rules.DowntimeRule{}}
	for _, r := range enabled {
		ruleSet = append(ruleSet, rules.ThresholdRule{Rule: r})
	}

	findings := rules.RunAll(ruleSet, in)
	e.bumpPersistence(findings)

	firing, err := e.alerts.Firing(ctx)
	if err != nil {
		return err
	}
	active := map[string]domain.Alert{}
	for _, a := range firing {
		active[a.RuleName+"|"+a.EquipmentCode] = a
	}

	seen := map[string]bool{}
	fired := 0
	for i := range findings {
		f := findings[i]
		f.Persistence = e.persistence[f.Key()]
		seen[f.Key()] = true
		if _, dup := active[f.Key()]; dup {
			continue
		}

		a := domain.Alert{
			ID:            uuid.NewString(),
			RuleID:        f.RuleID,
			RuleName:      f.RuleName,
			EquipmentCode: f.EquipmentCode,
			Metric:        f.Metric,
			Value:         f.Value,
			Severity:      f.Severity,
			Priority:      rules.PriorityScore(f),
			Message:       f.Message,
			Status:        domain.StatusFiring,
			FiredAt:       now,
		}
		if err := e.alerts.CreateAlert(ctx, &a); err != nil {
			log.Printf("[alerts] create failed rule=%s equipment=%s: %v", f.RuleName, f.EquipmentCode, err)
			continue
		}
		fired++
		e.publish(ctx, domain.Event{Type: "firing", Alert: a})
	}

	resolved := 0
	for key, a := range active {
		if seen[key] {
			continue
		}
		out, err := e.alerts.Resolve(ctx, a.ID)
		if err != nil {
			log.Printf("[alerts] auto-resolve failed id=%s: %v", a.ID, err)
			continue
		}
		resolved++
		delete(e.persistence, key)
		e.publish(ctx, domain.Event{Type: "resolved", Alert: *out})
	}

	if fired > 0 || resolved > 0 {
		log.Printf("[alerts] evaluated rules=%d findings=%d fired=%d resolved=%d", len(ruleSet), len(findings), fired, resolved)
	}
	return nil
}

func (e *Evaluator) buildInput(ctx context.Context, now time.Time, enabled []domain.AlertRule) (rules.Input, error) {
	windows := map[int]bool{rules.StaleDataWindowMin: true}
	for _, r := range enabled {
		if r.WindowMin > 0 {
			windows[r.WindowMin] = true
		}
	}

	stats := map[int][]metricdomain.WindowStat{}
	for w := range windows {
		s, err := e.ts.WindowStats(ctx, now.Add(-time.Duration(w)*time.Minute), now)
		if err != nil {
			return rules.Input{}, err
		}
		stats[w] = s
	}

	units, err := e.equipment.List(ctx, "", "")
	if err != nil {
		return rules.Input{}, err
	}
	known := make([]string, 0, len(units))
	for _, u := range units {
		known = append(known, u.Code)
	}

	down, err := e.equipment.DownSince(ctx)
	if err != nil {
		return rules.Input{}, err
	}
	downSince := make(map[string]time.Time, len(down))
	for code, u := range down {
		downSince[code] = u.UpdatedAt
	}

	return rules.Input{
		Now:            now,
		StatsByWindow:  stats,
		KnownEquipment: known,
		DownSince:      downSince,
	}, nil
}

func (e *Evaluator) bumpPersistence(findings []rules.Finding) {
	seen := map[string]bool{}
	for _, f := range findings {
		seen[f.Key()] = true
		e.persistence[f.Key()]++
	}
	for key := range e.persistence {
		if !seen[key] {
			delete(e.persistence, key)
		}
	}
}

func (e *Evaluator) publish(ctx context.Context, ev domain.Event) {
	if e.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := e.rdb.Publish(ctx, domain.EventChannel, payload).Err(); err != nil {
		log.Printf("[alerts] publish failed: %v", err)
	}
}
