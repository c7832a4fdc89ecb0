package dashboards

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
)

type Handler struct {
	repo *Repo
}

func Register(rg *gin.RouterGroup, repo *Repo) {
	h := &Handler{repo: repo}

	rg.POST("", h.create)
	rg.POST("/default", h.createDefault)
	rg.GET("", h.list)
	rg.GET("/:public_id", h.get)
	rg.PATCH("/:public_id", h.update)
	rg.PUT("/:public_id/star", h.star)
	rg.DELETE("/:public_id/star", h.unstar)
	rg.DELETE("/:public_id", h.delete)
}

type createReq struct {
	Name   string          `json:"name"`
	Layout json.RawMessage `json:"layout"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if len(req.Layout) > 0 && !json.Valid(req.Layout) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "layout must be valid JSON"})
		return
	}

	userID := auth.UserDBID(c)
	d, err := h.repo.Create(c.Request.Context(), userID, strings.TrimSpace(req.Name), req.Layout)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "dashboard": d})
}

// createDefault provisions the stock OEE overview for the caller.
func (h *Handler) createDefault(c *gin.Context) {
	userID := auth.UserDBID(c)
	d, err := h.repo.Create(c.Request.Context(), userID, DefaultDashboardName, DefaultLayout())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "dashboard": d})
}

func (h *Handler) list(c *gin.Context) {
	userID := auth.UserDBID(c)
	items, err := h.repo.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboards": items})
}

func (h *Handler) get(c *gin.Context) {
	userID := auth.UserDBID(c)
	d, err := h.repo.Get(c.Request.Context(), userID, c.Param("public_id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "dashboard not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboard": d})
}

type updateReq struct {
	Name   *string         `json:"name"`
	Layout json.RawMessage `json:"layout"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "name must not be empty"})
		return
	}
	if len(req.Layout) > 0 && !json.Valid(req.Layout) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "layout must be valid JSON"})
		return
	}

	userID := auth.UserDBID(c)
	d, err := h.repo.Update(c.Request.Context(), userID, c.Param("public_id"), req.Name, req.Layout)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "dashboard not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboard": d})
}

func (h *Handler) star(c *gin.Context)   { h.setStarred(c, true) }
func (h *Handler) unstar(c *gin.Context) { h.setStarred(c, false) }

func (h *Handler) setStarred(c *gin.Context, starred bool) {
	userID := auth.UserDBID(c)
	d, err := h.repo.SetStarred(c.Request.Context(), userID, c.Param("public_id"), starred)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "dashboard not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboard": d})
}

func (h *Handler) delete(c *gin.Context) {
	userID := auth.UserDBID(c)
	ok, err := h.repo.SoftDelete(c.Request.Context(), userID, c.Param("public_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "dashboard not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
