package http

import (
	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/audit"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authdomain "github.com/plantpulse/plantpulse-backend/internal/auth/domain"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
)

// Handler bundles the dependencies for equipment HTTP endpoints.
type Handler struct {
	repo  *equipment.Repo
	audit *audit.Repo
}

func New(repo *equipment.Repo, auditRepo *audit.Repo) *Handler {
	return &Handler{repo: repo, audit: auditRepo}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("", h.list)
	r.GET("/:code", h.get)
	r.POST("", auth.RequireRole(authdomain.RoleOperator), h.create)
	r.PATCH("/:code", auth.RequireRole(authdomain.RoleOperator), h.update)
	r.PUT("/:code/status", auth.RequireRole(authdomain.RoleOperator), h.setStatus)
}
