package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
	"github.com/plantpulse/plantpulse-backend/internal/auth/domain"
	"github.com/plantpulse/plantpulse-backend/internal/auth/repository"
)

func (h *Handler) me(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	user, err := h.repo.GetByFirebaseUID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

type updateMeReq struct {
	DisplayName *string `json:"display_name,omitempty"`
	Site        *string `json:"site,omitempty"`
}

func (h *Handler) updateMe(c *gin.Context) {
	var req updateMeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	user, err := h.repo.UpdateProfile(c.Request.Context(), auth.UserFirebaseUID(c), repository.UpdateProfile{
		DisplayName: req.DisplayName,
		Site:        req.Site,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

type setRoleReq struct {
	Role string `json:"role"`
}

func (h *Handler) setRole(c *gin.Context) {
	uid := c.Param("uid")

	var req setRoleReq
	if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidRole(strings.TrimSpace(req.Role)) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid role"})
		return
	}

	user, err := h.repo.SetRole(c.Request.Context(), uid, strings.TrimSpace(req.Role))
	if err != nil {
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}
