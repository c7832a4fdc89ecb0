package http

import (
	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authdomain "github.com/plantpulse/plantpulse-backend/internal/auth/domain"
	"github.com/plantpulse/plantpulse-backend/internal/metrics/repository"
	"github.com/plantpulse/plantpulse-backend/internal/metrics/service"
)

type Handler struct {
	timeseries *repository.TimeseriesRepository
	rollups    *repository.RollupRepository
	summaries  *service.SummaryService
}

func New(ts *repository.TimeseriesRepository, ru *repository.RollupRepository, sum *service.SummaryService) *Handler {
	return &Handler{timeseries: ts, rollups: ru, summaries: sum}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/ingest", auth.RequireRole(authdomain.RoleOperator), h.ingest)
	r.GET("/query", h.query)
	r.GET("/oee/:code", h.oee)
	r.GET("/oee/:code/rollups", h.oeeRollups)
}
