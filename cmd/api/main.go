package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantpulse/plantpulse-backend/config"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
	"github.com/plantpulse/plantpulse-backend/internal/bootstrap"
	"github.com/plantpulse/plantpulse-backend/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, caching and streaming degraded: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	fbAuth, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		log.Printf("firebase disabled: %v", err)
	}

	router, services := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Cfg:          cfg,
		DB:           db,
		SQL:          sqlDB,
		RDB:          rdb,
		FirebaseAuth: fbAuth,
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Disabled {
		log.Println("[cron] scheduler disabled")
	} else {
		sched = scheduler.New(cfg.Scheduler, services.Evaluator, services.Rollups, services.Audits)
		if err := sched.Start(); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s (env=%s version=%s)", cfg.Server.Port, cfg.App.Environment, cfg.App.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
