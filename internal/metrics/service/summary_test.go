package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
	"github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
)

func setupSummaryService(t *testing.T) (*SummaryService, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewSummaryService(repository.NewTimeseriesRepository(db), rdb), mock, mr
}

func expectWindowSums(mock sqlmock.Sqlmock, points int) {
	mock.ExpectQuery(`FROM metric_timeseries`).
		WithArgs("CNC-07", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"good", "total", "runtime", "planned", "cycle", "points"}).
			AddRow(430.0, 450.0, 420.0, 480.0, 50.0, points))
}

func TestSummaryService_ReadThrough(t *testing.T) {
	svc, mock, mr := setupSummaryService(t)
	ctx := context.Background()

	// First call misses the cache and hits Postgres.
	expectWindowSums(mock, 12)

	first, err := svc.Summary(ctx, "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 0.875, first.Availability, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())

	// Second call is served from Redis: no further query expectations.
	second, err := svc.Summary(ctx, "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first.OEE, second.OEE)

	// Expiring the key forces a recompute.
	mr.FastForward(oeeCacheTTL + time.Second)
	expectWindowSums(mock, 12)

	_, err = svc.Summary(ctx, "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryService_NoData(t *testing.T) {
	svc, mock, _ := setupSummaryService(t)

	mock.ExpectQuery(`FROM metric_timeseries`).
		WithArgs("CNC-07", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"good", "total", "runtime", "planned", "cycle", "points"}).
			AddRow(0.0, 0.0, 0.0, 0.0, 0.0, 0))

	_, err := svc.Summary(context.Background(), "CNC-07", time.Hour)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestSummaryService_Invalidate(t *testing.T) {
	svc, mock, mr := setupSummaryService(t)
	ctx := context.Background()

	expectWindowSums(mock, 12)
	_, err := svc.Summary(ctx, "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	require.True(t, mr.Exists("oee:CNC-07:8h0m0s"))

	svc.Invalidate(ctx, "CNC-07")
	assert.False(t, mr.Exists("oee:CNC-07:8h0m0s"))

	// Next read recomputes.
	expectWindowSums(mock, 12)
	_, err = svc.Summary(ctx, "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryService_NilRedisDisablesCaching(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewSummaryService(repository.NewTimeseriesRepository(db), nil)

	expectWindowSums(mock, 12)
	expectWindowSums(mock, 12)

	_, err = svc.Summary(context.Background(), "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), "CNC-07", 8*time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
