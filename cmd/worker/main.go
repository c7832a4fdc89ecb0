package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/plantpulse/plantpulse-backend/config"
	alertrepo "github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	alertservice "github.com/plantpulse/plantpulse-backend/internal/alerts/service"
	"github.com/plantpulse/plantpulse-backend/internal/bootstrap"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
	metricrepo "github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
	metricservice "github.com/plantpulse/plantpulse-backend/internal/metrics/service"
)

const usage = `usage: worker <command>

commands:
  evaluate-alerts       run one alert evaluation pass
  rollup-oee [-since t] write hourly OEE rollups (t is RFC3339, default last hour)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:       cfg.Database.DSN(),
		ConnectTO: 10 * time.Second,
		PingTO:    5 * time.Second,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	sqlDB, err := bootstrap.OpenSQL(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("postgres (database/sql): %v", err)
	}
	defer sqlDB.Close()

	timeseriesRepo := metricrepo.NewTimeseriesRepository(sqlDB)

	switch os.Args[1] {
	case "evaluate-alerts":
		rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			log.Printf("redis unavailable, events will not be published: %v", err)
			rdb = nil
		}
		if rdb != nil {
			defer rdb.Close()
		}

		ev := alertservice.NewEvaluator(alertrepo.New(sqlDB), timeseriesRepo, equipment.NewRepo(db), rdb)
		if err := ev.EvaluateOnce(ctx); err != nil {
			log.Fatalf("evaluate-alerts: %v", err)
		}

	case "rollup-oee":
		fs := flag.NewFlagSet("rollup-oee", flag.ExitOnError)
		since := fs.String("since", "", "roll up every hour from this RFC3339 time")
		_ = fs.Parse(os.Args[2:])

		rollups := metricservice.NewRollupService(timeseriesRepo, metricrepo.NewRollupRepository(sqlDB))

		var n int
		if *since != "" {
			from, err := time.Parse(time.RFC3339, *since)
			if err != nil {
				log.Fatalf("rollup-oee: invalid -since: %v", err)
			}
			n, err = rollups.RollupSince(ctx, from)
			if err != nil {
				log.Fatalf("rollup-oee: %v", err)
			}
		} else {
			hour := time.Now().UTC().Truncate(time.Hour).Add(-time.Hour)
			var err error
			n, err = rollups.RollupHour(ctx, hour)
			if err != nil {
				log.Fatalf("rollup-oee: %v", err)
			}
		}
		log.Printf("rollup-oee: wrote %d rows", n)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
