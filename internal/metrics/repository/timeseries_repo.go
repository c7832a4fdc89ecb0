package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

// TimeseriesRepository handles PostgreSQL operations for metric samples.
type TimeseriesRepository struct {
	db *sql.DB
}

func NewTimeseriesRepository(db *sql.DB) *TimeseriesRepository {
	return &TimeseriesRepository{db: db}
}

// InsertBatch inserts metric points in a single transaction.
// This is more efficient than inserting one at a time.
func (r *TimeseriesRepository) InsertBatch(ctx context.Context, points []domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_timeseries (equipment_code, time, name, value, tags)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, point := range points {
		if point.Time.IsZero() {
			point.Time = time.Now()
		}

		tagsJSON, err := json.Marshal(point.Tags)
		if err != nil {
			tagsJSON = []byte("{}")
		}

		_, err = stmt.ExecContext(ctx,
			point.EquipmentCode,
			point.Time,
			point.Name,
			point.Value,
			tagsJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert metric point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryRange returns points for one equipment unit over [from, to], optionally
// restricted to a set of metric names, ordered by time.
func (r *TimeseriesRepository) QueryRange(ctx context.Context, equipmentCode string, from, to time.Time, names []string) ([]domain.MetricPoint, error) {
	const q = `
		SELECT equipment_code, time, name, value, tags
		FROM metric_timeseries
		WHERE equipment_code = $1
		  AND time >= $2 AND time <= $3
		  AND (cardinality($4::text[]) = 0 OR name = ANY($4))
		ORDER BY time
	`
	if names == nil {
		names = []string{}
	}

	rows, err := r.db.QueryContext(ctx, q, equipmentCode, from, to, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricPoint
	for rows.Next() {
		var p domain.MetricPoint
		var tagsJSON []byte
		if err := rows.Scan(&p.EquipmentCode, &p.Time, &p.Name, &p.Value, &tagsJSON); err != nil {
			return nil, err
		}
		if len(tagsJSON) > 0 {
			_ = json.Unmarshal(tagsJSON, &p.Tags)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// WindowSums aggregates the OEE input counters for one equipment unit.
func (r *TimeseriesRepository) WindowSums(ctx context.Context, equipmentCode string, from, to time.Time) (*domain.WindowSums, error) {
	const q = `
		SELECT
			COALESCE(SUM(value) FILTER (WHERE name = 'good_count'), 0),
			COALESCE(SUM(value) FILTER (WHERE name = 'total_count'), 0),
			COALESCE(SUM(value) FILTER (WHERE name = 'runtime_min'), 0),
			COALESCE(SUM(value) FILTER (WHERE name = 'planned_time_min'), 0),
			COALESCE(AVG(value) FILTER (WHERE name = 'ideal_cycle_sec'), 0),
			COUNT(*)
		FROM metric_timeseries
		WHERE equipment_code = $1
		  AND time >= $2 AND time <= $3
	`
	var s domain.WindowSums
	s.EquipmentCode = equipmentCode
	err := r.db.QueryRowContext(ctx, q, equipmentCode, from, to).Scan(
		&s.GoodCount, &s.TotalCount, &s.RuntimeMin, &s.PlannedTimeMin, &s.IdealCycleSec, &s.Points,
	)
	if err != nil {
		return nil, fmt.Errorf("window sums: %w", err)
	}
	return &s, nil
}

// EquipmentCodesWithData returns codes that have at least one point in the window.
func (r *TimeseriesRepository) EquipmentCodesWithData(ctx context.Context, from, to time.Time) ([]string, error) {
	const q = `
		SELECT DISTINCT equipment_code
		FROM metric_timeseries
		WHERE time >= $1 AND time <= $2
		ORDER BY equipment_code
	`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("codes with data: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

// WindowStats returns per-equipment, per-metric aggregates over the window.
// Used by the alert rule engine.
func (r *TimeseriesRepository) WindowStats(ctx context.Context, from, to time.Time) ([]domain.WindowStat, error) {
	const q = `
		SELECT
			equipment_code,
			name,
			AVG(value),
			MIN(value),
			MAX(value),
			(ARRAY_AGG(value ORDER BY time DESC))[1],
			COUNT(*)
		FROM metric_timeseries
		WHERE time >= $1 AND time <= $2
		GROUP BY equipment_code, name
	`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("window stats: %w", err)
	}
	defer rows.Close()

	var out []domain.WindowStat
	for rows.Next() {
		var s domain.WindowStat
		if err := rows.Scan(&s.EquipmentCode, &s.Name, &s.Avg, &s.Min, &s.Max, &s.Last, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
