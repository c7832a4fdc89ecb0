package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

// RollupRepository persists hourly OEE aggregates.
type RollupRepository struct {
	db *sql.DB
}

func NewRollupRepository(db *sql.DB) *RollupRepository {
	return &RollupRepository{db: db}
}

// Upsert writes one hourly rollup, replacing any previous aggregate for the
// same equipment and hour so re-running a rollup is idempotent.
func (r *RollupRepository) Upsert(ctx context.Context, ru domain.Rollup) error {
	const q = `
		INSERT INTO oee_rollups (equipment_code, hour_start, availability, performance, quality, oee, good_count, total_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (equipment_code, hour_start) DO UPDATE
		SET availability = EXCLUDED.availability,
		    performance = EXCLUDED.performance,
		    quality = EXCLUDED.quality,
		    oee = EXCLUDED.oee,
		    good_count = EXCLUDED.good_count,
		    total_count = EXCLUDED.total_count
	`
	_, err := r.db.ExecContext(ctx, q,
		ru.EquipmentCode, ru.HourStart, ru.Availability, ru.Performance, ru.Quality, ru.OEE, ru.GoodCount, ru.TotalCount,
	)
	if err != nil {
		return fmt.Errorf("rollup upsert: %w", err)
	}
	return nil
}

// Range returns rollups for one equipment unit ordered by hour.
func (r *RollupRepository) Range(ctx context.Context, equipmentCode string, from, to time.Time) ([]domain.Rollup, error) {
	const q = `
		SELECT equipment_code, hour_start, availability, performance, quality, oee, good_count, total_count
		FROM oee_rollups
		WHERE equipment_code = $1 AND hour_start >= $2 AND hour_start <= $3
		ORDER BY hour_start
	`
	rows, err := r.db.QueryContext(ctx, q, equipmentCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("rollup range: %w", err)
	}
	defer rows.Close()

	var out []domain.Rollup
	for rows.Next() {
		var ru domain.Rollup
		if err := rows.Scan(&ru.EquipmentCode, &ru.HourStart, &ru.Availability, &ru.Performance, &ru.Quality, &ru.OEE, &ru.GoodCount, &ru.TotalCount); err != nil {
			return nil, err
		}
		out = append(out, ru)
	}
	return out, rows.Err()
}
