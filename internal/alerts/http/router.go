package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/repository"
	"github.com/plantpulse/plantpulse-backend/internal/alerts/service"
	"github.com/plantpulse/plantpulse-backend/internal/audit"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authdomain "github.com/plantpulse/plantpulse-backend/internal/auth/domain"
)

type Handler struct {
	repo      *repository.Repo
	evaluator *service.Evaluator
	audit     *audit.Repo
	rdb       *redis.Client
}

func New(repo *repository.Repo, ev *service.Evaluator, auditRepo *audit.Repo, rdb *redis.Client) *Handler {
	return &Handler{repo: repo, evaluator: ev, audit: auditRepo, rdb: rdb}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/alerts", h.list)
	r.GET("/alerts/stream", h.stream)
	r.POST("/alerts/:id/ack", auth.RequireRole(authdomain.RoleOperator), h.ack)
	r.POST("/alerts/:id/resolve", auth.RequireRole(authdomain.RoleOperator), h.resolve)
	r.POST("/alerts/evaluate", auth.RequireRole(authdomain.RoleOperator), h.evaluate)

	r.GET("/alert-rules", h.listRules)
	r.POST("/alert-rules", auth.RequireRole(authdomain.RoleOperator), h.createRule)
	r.PUT("/alert-rules/:id", auth.RequireRole(authdomain.RoleOperator), h.updateRule)
	r.DELETE("/alert-rules/:id", auth.RequireRole(authdomain.RoleAdmin), h.deleteRule)
}
