package http

import (
	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
	"github.com/plantpulse/plantpulse-backend/internal/auth/domain"
	"github.com/plantpulse/plantpulse-backend/internal/auth/repository"
)

type Handler struct {
	repo *repository.UserRepository
}

func New(repo *repository.UserRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/me", h.me)
	r.PATCH("/me", h.updateMe)
	r.PUT("/users/:uid/role", auth.RequireRole(domain.RoleAdmin), h.setRole)
}
