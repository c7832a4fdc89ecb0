package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plantpulse/plantpulse-backend/config"
	alertservice "github.com/plantpulse/plantpulse-backend/internal/alerts/service"
	"github.com/plantpulse/plantpulse-backend/internal/audit"
	metricservice "github.com/plantpulse/plantpulse-backend/internal/metrics/service"
)

// Scheduler runs the recurring jobs: alert evaluation, hourly OEE rollups
// and audit log retention.
type Scheduler struct {
	cfg       config.SchedulerConfig
	evaluator *alertservice.Evaluator
	rollups   *metricservice.RollupService
	audits    *audit.Repo

	cron *cron.Cron
}

func New(cfg config.SchedulerConfig, ev *alertservice.Evaluator, ru *metricservice.RollupService, au *audit.Repo) *Scheduler {
	return &Scheduler{cfg: cfg, evaluator: ev, rollups: ru, audits: au}
}

// Start registers the jobs and starts the cron loop. Specs use the
// seconds-field format.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(s.cfg.AlertEvalSpec, s.runAlertEval); err != nil {
		return err
	}
	if _, err := c.AddFunc(s.cfg.OEERollupSpec, s.runRollup); err != nil {
		return err
	}
	if _, err := c.AddFunc(s.cfg.AuditPurgeSpec, s.runAuditPurge); err != nil {
		return err
	}

	c.Start()
	s.cron = c
	log.Printf("[cron] scheduler started (alerts=%q rollup=%q purge=%q)",
		s.cfg.AlertEvalSpec, s.cfg.OEERollupSpec, s.cfg.AuditPurgeSpec)
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runAlertEval() {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	if err := s.evaluator.EvaluateOnce(ctx); err != nil {
		log.Printf("[cron] alert evaluation failed: %v", err)
	}
}

func (s *Scheduler) runRollup() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Roll up the last complete hour.
	hour := time.Now().UTC().Truncate(time.Hour).Add(-time.Hour)
	n, err := s.rollups.RollupHour(ctx, hour)
	if err != nil {
		log.Printf("[cron] oee rollup failed for %s: %v", hour.Format(time.RFC3339), err)
		return
	}
	if n > 0 {
		log.Printf("[cron] oee rollup wrote %d rows for %s", n, hour.Format(time.RFC3339))
	}
}

func (s *Scheduler) runAuditPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	retention := time.Duration(s.cfg.AuditRetentionDays) * 24 * time.Hour
	n, err := s.audits.PurgeOlderThan(ctx, retention)
	if err != nil {
		log.Printf("[cron] audit purge failed: %v", err)
		return
	}
	log.Printf("[cron] audit purge removed %d entries older than %d days", n, s.cfg.AuditRetentionDays)
}
