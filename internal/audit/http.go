package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authdomain "github.com/plantpulse/plantpulse-backend/internal/auth/domain"
)

type Handler struct {
	repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/audit", auth.RequireRole(authdomain.RoleAdmin), h.list)
}

func (h *Handler) list(c *gin.Context) {
	f := ListFilter{
		Entity:   c.Query("entity"),
		ActorUID: c.Query("actor"),
		Limit:    atoi(c.Query("limit"), 100),
		Offset:   atoi(c.Query("offset"), 0),
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid since"})
			return
		}
		f.Since = t
	}
	if v := c.Query("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid until"})
			return
		}
		f.Until = t
	}

	entries, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "entries": entries})
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
