package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
	"github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
)

const (
	oeeKeyPrefix = "oee:" // oee:{equipment_code}:{window}
	oeeCacheTTL  = 5 * time.Minute
)

// Windows the API serves summaries for. Ingest invalidates all of them.
var SummaryWindows = []time.Duration{time.Hour, 8 * time.Hour, 24 * time.Hour}

// SummaryService computes OEE window summaries with a Redis read-through
// cache. A nil redis client disables caching.
type SummaryService struct {
	repo *repository.TimeseriesRepository
	rdb  *redis.Client
}

func NewSummaryService(repo *repository.TimeseriesRepository, rdb *redis.Client) *SummaryService {
	return &SummaryService{repo: repo, rdb: rdb}
}

// Summary returns the OEE decomposition for one equipment unit over the
// trailing window.
func (s *SummaryService) Summary(ctx context.Context, equipmentCode string, window time.Duration) (*domain.OEESummary, error) {
	key := s.cacheKey(equipmentCode, window)

	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var cached domain.OEESummary
			if json.Unmarshal([]byte(data), &cached) == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			log.Printf("[oee] cache get failed: %v", err)
		}
	}

	to := time.Now()
	from := to.Add(-window)

	sums, err := s.repo.WindowSums(ctx, equipmentCode, from, to)
	if err != nil {
		return nil, err
	}
	if sums.Points == 0 {
		return nil, domain.ErrNoData
	}

	out := ComputeOEE(*sums)
	out.WindowStart = from
	out.WindowEnd = to

	if s.rdb != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.rdb.Set(ctx, key, data, oeeCacheTTL).Err(); err != nil {
				log.Printf("[oee] cache set failed: %v", err)
			}
		}
	}

	return &out, nil
}

// Invalidate drops cached summaries for one equipment unit. Called on ingest.
func (s *SummaryService) Invalidate(ctx context.Context, equipmentCode string) {
	if s.rdb == nil {
		return
	}
	keys := make([]string, 0, len(SummaryWindows))
	for _, w := range SummaryWindows {
		keys = append(keys, s.cacheKey(equipmentCode, w))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[oee] cache invalidate failed: %v", err)
	}
}

func (s *SummaryService) cacheKey(equipmentCode string, window time.Duration) string {
	return fmt.Sprintf("%s%s:%s", oeeKeyPrefix, equipmentCode, window)
}
