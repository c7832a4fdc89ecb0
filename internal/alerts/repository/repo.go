package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
)

type Repo struct {
	db *sql.DB
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// ---- rules ----

func (r *Repo) CreateRule(ctx context.Context, rule *domain.AlertRule) (*domain.AlertRule, error) {
	const q = `
		INSERT INTO alert_rules (name, metric, equipment_code, condition, threshold, window_min, severity, enabled)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q,
		rule.Name, rule.Metric, rule.EquipmentCode, rule.Condition,
		rule.Threshold, rule.WindowMin, string(rule.Severity), rule.Enabled,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return rule, nil
}

func (r *Repo) ListRules(ctx context.Context, enabledOnly bool) ([]domain.AlertRule, error) {
	const q = `
		SELECT id, name, metric, COALESCE(equipment_code,''), condition, threshold, window_min, severity, enabled, created_at, updated_at
		FROM alert_rules
		WHERE NOT $1 OR enabled
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRule
	for rows.Next() {
		var rule domain.AlertRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Metric, &rule.EquipmentCode, &rule.Condition,
			&rule.Threshold, &rule.WindowMin, &rule.Severity, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateRule(ctx context.Context, rule *domain.AlertRule) (*domain.AlertRule, error) {
	const q = `
		UPDATE alert_rules
		SET name = $2, metric = $3, equipment_code = NULLIF($4,''), condition = $5,
		    threshold = $6, window_min = $7, severity = $8, enabled = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q,
		rule.ID, rule.Name, rule.Metric, rule.EquipmentCode, rule.Condition,
		rule.Threshold, rule.WindowMin, string(rule.Severity), rule.Enabled,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return rule, nil
}

func (r *Repo) DeleteRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// ---- alerts ----

func (r *Repo) CreateAlert(ctx context.Context, a *domain.Alert) error {
	const q = `
		INSERT INTO alerts (id, rule_id, rule_name, equipment_code, metric, value, severity, priority, message, status, fired_at)
		VALUES ($1, NULLIF($2,0), $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if a.FiredAt.IsZero() {
		a.FiredAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.RuleID, a.RuleName, a.EquipmentCode, a.Metric, a.Value,
		string(a.Severity), a.Priority, a.Message, a.Status, a.FiredAt,
	)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// Firing returns every alert currently in the firing or acknowledged state.
// Acknowledged alerts still count for dedupe: acking silences, it does not
// re-arm the rule.
func (r *Repo) Firing(ctx context.Context) ([]domain.Alert, error) {
	const q = `
		SELECT id, COALESCE(rule_id,0), rule_name, equipment_code, metric, value, severity, priority, message, status, fired_at, acked_at, acked_by, resolved_at
		FROM alerts
		WHERE status IN ('firing','acknowledged')
		ORDER BY priority DESC, fired_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("firing alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (r *Repo) List(ctx context.Context, f domain.ListFilter) ([]domain.Alert, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	const q = `
		SELECT id, COALESCE(rule_id,0), rule_name, equipment_code, metric, value, severity, priority, message, status, fired_at, acked_at, acked_by, resolved_at
		FROM alerts
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR severity = $2)
		  AND ($3 = '' OR equipment_code = $3)
		ORDER BY fired_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.QueryContext(ctx, q, f.Status, f.Severity, f.EquipmentCode, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (r *Repo) Acknowledge(ctx context.Context, id, ackedBy string) (*domain.Alert, error) {
	const q = `
		UPDATE alerts
		SET status = 'acknowledged', acked_at = NOW(), acked_by = $2
		WHERE id = $1 AND status = 'firing'
		RETURNING id, COALESCE(rule_id,0), rule_name, equipment_code, metric, value, severity, priority, message, status, fired_at, acked_at, acked_by, resolved_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, ackedBy))
}

func (r *Repo) Resolve(ctx context.Context, id string) (*domain.Alert, error) {
	const q = `
		UPDATE alerts
		SET status = 'resolved', resolved_at = NOW()
		WHERE id = $1 AND status IN ('firing','acknowledged')
		RETURNING id, COALESCE(rule_id,0), rule_name, equipment_code, metric, value, severity, priority, message, status, fired_at, acked_at, acked_by, resolved_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *Repo) scanOne(row *sql.Row) (*domain.Alert, error) {
	var a domain.Alert
	err := row.Scan(&a.ID, &a.RuleID, &a.RuleName, &a.EquipmentCode, &a.Metric, &a.Value,
		&a.Severity, &a.Priority, &a.Message, &a.Status, &a.FiredAt, &a.AckedAt, &a.AckedBy, &a.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAlerts(rows *sql.Rows) ([]domain.Alert, error) {
	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.RuleID, &a.RuleName, &a.EquipmentCode, &a.Metric, &a.Value,
			&a.Severity, &a.Priority, &a.Message, &a.Status, &a.FiredAt, &a.AckedAt, &a.AckedBy, &a.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
