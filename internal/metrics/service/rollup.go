package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
	"github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
)

// RollupService aggregates raw samples into hourly OEE rollups.
type RollupService struct {
	timeseries *repository.TimeseriesRepository
	rollups    *repository.RollupRepository
}

func NewRollupService(ts *repository.TimeseriesRepository, ru *repository.RollupRepository) *RollupService {
	return &RollupService{timeseries: ts, rollups: ru}
}

// RollupHour computes and persists rollups for every equipment unit with data
// in the hour starting at hourStart. Returns the number of rollups written.
func (s *RollupService) RollupHour(ctx context.Context, hourStart time.Time) (int, error) {
	hourStart = hourStart.Truncate(time.Hour)
	hourEnd := hourStart.Add(time.Hour)

	codes, err := s.timeseries.EquipmentCodesWithData(ctx, hourStart, hourEnd)
	if err != nil {
		return 0, fmt.Errorf("rollup hour: %w", err)
	}

	written := 0
	for _, code := range codes {
		sums, err := s.timeseries.WindowSums(ctx, code, hourStart, hourEnd)
		if err != nil {
			log.Printf("[rollup] sums failed equipment=%s hour=%s: %v", code, hourStart, err)
			continue
		}
		if sums.Points == 0 {
			continue
		}

		oee := ComputeOEE(*sums)
		err = s.rollups.Upsert(ctx, rollupFromSummary(code, hourStart, oee))
		if err != nil {
			log.Printf("[rollup] upsert failed equipment=%s hour=%s: %v", code, hourStart, err)
			continue
		}
		written++
	}

	log.Printf("[rollup] hour=%s equipment=%d written=%d", hourStart.Format(time.RFC3339), len(codes), written)
	return written, nil
}

// RollupSince replays rollups hour by hour from `since` up to the last
// completed hour. Used by the worker command after a backfill.
func (s *RollupService) RollupSince(ctx context.Context, since time.Time) (int, error) {
	lastComplete := time.Now().Truncate(time.Hour)
	total := 0
	for h := since.Truncate(time.Hour); h.Before(lastComplete); h = h.Add(time.Hour) {
		n, err := s.RollupHour(ctx, h)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func rollupFromSummary(code string, hourStart time.Time, s domain.OEESummary) domain.Rollup {
	return domain.Rollup{
		EquipmentCode: code,
		HourStart:     hourStart,
		Availability:  s.Availability,
		Performance:   s.Performance,
		Quality:       s.Quality,
		OEE:           s.OEE,
		GoodCount:     s.GoodCount,
		TotalCount:    s.TotalCount,
	}
}
