package bootstrap

import (
	"database/sql"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/plantpulse/plantpulse-backend/config"
	agenthttp "github.com/plantpulse/plantpulse-backend/internal/agent/http"
	"github.com/plantpulse/plantpulse-backend/internal/agent/llm"
	agentrepo "github.com/plantpulse/plantpulse-backend/internal/agent/repository"
	agentservice "github.com/plantpulse/plantpulse-backend/internal/agent/service"
	alerthttp "github.com/plantpulse/plantpulse-backend/internal/alerts/http"
	alertrepo "github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	alertservice "github.com/plantpulse/plantpulse-backend/internal/alerts/service"
	httpapi "github.com/plantpulse/plantpulse-backend/internal/api/http"
	apimiddleware "github.com/plantpulse/plantpulse-backend/internal/api/http/middleware"
	"github.com/plantpulse/plantpulse-backend/internal/audit"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authhttp "github.com/plantpulse/plantpulse-backend/internal/auth/http"
	authmiddleware "github.com/plantpulse/plantpulse-backend/internal/auth/middleware"
	authrepo "github.com/plantpulse/plantpulse-backend/internal/auth/repository"
	"github.com/plantpulse/plantpulse-backend/internal/dashboards"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
	equipmenthttp "github.com/plantpulse/plantpulse-backend/internal/equipment/http"
	metrichttp "github.com/plantpulse/plantpulse-backend/internal/metrics/http"
	metricrepo "github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
	metricservice "github.com/plantpulse/plantpulse-backend/internal/metrics/service"
	"github.com/plantpulse/plantpulse-backend/internal/metricsource"
	"github.com/plantpulse/plantpulse-backend/internal/plugins"
)

type RouterDeps struct {
	Cfg          *config.Config
	DB           *pgxpool.Pool
	SQL          *sql.DB
	RDB          *redis.Client
	FirebaseAuth *fbauth.Client
}

// Services are the long-lived components the router wires. Exposed so
// cmd/api can hand the same instances to the scheduler.
type Services struct {
	Evaluator *alertservice.Evaluator
	Rollups   *metricservice.RollupService
	Audits    *audit.Repo
}

func BuildRouter(dep RouterDeps) (*gin.Engine, *Services) {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(apimiddleware.RequestIDMiddleware())

	health := httpapi.NewHealthHandler("plantpulse-backend", dep.Cfg.App.Version, dep.Cfg.App.Environment, dep.DB, dep.RDB)
	health.RegisterRoutes(r)

	// repositories
	userRepo := authrepo.NewUserRepository(dep.DB)
	equipmentRepo := equipment.NewRepo(dep.DB)
	dashboardRepo := dashboards.NewRepo(dep.DB)
	pluginRepo := plugins.NewRepo(dep.DB)
	timeseriesRepo := metricrepo.NewTimeseriesRepository(dep.SQL)
	rollupRepo := metricrepo.NewRollupRepository(dep.SQL)
	alertRepo := alertrepo.New(dep.SQL)
	auditRepo := audit.NewRepo(dep.SQL)
	chatRepo := agentrepo.NewChatRepo(dep.SQL)

	// services
	summaries := metricservice.NewSummaryService(timeseriesRepo, dep.RDB)
	rollups := metricservice.NewRollupService(timeseriesRepo, rollupRepo)
	evaluator := alertservice.NewEvaluator(alertRepo, timeseriesRepo, equipmentRepo, dep.RDB)
	llmClient := llm.New(dep.Cfg.Ollama)
	agent := agentservice.NewAgent(summaries, timeseriesRepo, equipmentRepo, alertRepo, llmClient)
	sourceClient := metricsource.NewClient(dep.Cfg.MetricsSource)

	api := r.Group("/api/v1")

	if dep.FirebaseAuth != nil {
		api.Use(authmiddleware.FirebaseAuthMiddleware(dep.FirebaseAuth))
	} else {
		api.Use(auth.OptionalUser())
	}
	api.Use(auth.WithUser(userRepo))
	api.Use(audit.Middleware(auditRepo))

	authhttp.New(userRepo).Register(api)
	equipmenthttp.New(equipmentRepo, auditRepo).Register(api.Group("/equipment"))
	metrichttp.New(timeseriesRepo, rollupRepo, summaries).Register(api.Group("/metrics"))
	alerthttp.New(alertRepo, evaluator, auditRepo, dep.RDB).Register(api)
	dashboards.Register(api.Group("/dashboards"), dashboardRepo)
	plugins.Register(api.Group("/plugins"), pluginRepo)
	agenthttp.New(agent, llmClient, chatRepo).Register(api)
	metricsource.Register(api, sourceClient)
	audit.NewHandler(auditRepo).Register(api)

	return r, &Services{Evaluator: evaluator, Rollups: rollups, Audits: auditRepo}
}
