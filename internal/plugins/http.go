package plugins

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
	authdomain "github.com/plantpulse/plantpulse-backend/internal/auth/domain"
)

type Handler struct {
	repo *Repo
}

func Register(rg *gin.RouterGroup, repo *Repo) {
	h := &Handler{repo: repo}

	rg.GET("", h.list)
	rg.GET("/:key", h.get)

	admin := auth.RequireRole(authdomain.RoleAdmin)
	rg.POST("", admin, h.create)
	rg.PATCH("/:key", admin, h.update)
	rg.PUT("/:key/enable", admin, h.enable)
	rg.PUT("/:key/disable", admin, h.disable)
	rg.DELETE("/:key", admin, h.delete)
}

type createReq struct {
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Kind    string          `json:"kind"`
	Version string          `json:"version"`
	Config  json.RawMessage `json:"config"`
	Enabled bool            `json:"enabled"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	req.Key = strings.ToLower(strings.TrimSpace(req.Key))
	if req.Key == "" || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "key and name are required"})
		return
	}
	if !ValidKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "kind must be one of panel, datasource, integration"})
		return
	}
	if len(req.Config) > 0 && !json.Valid(req.Config) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "config must be valid JSON"})
		return
	}

	p, err := h.repo.Create(c.Request.Context(), &Plugin{
		Key:     req.Key,
		Name:    strings.TrimSpace(req.Name),
		Kind:    req.Kind,
		Version: strings.TrimSpace(req.Version),
		Config:  req.Config,
		Enabled: req.Enabled,
	})
	if errors.Is(err, ErrDuplicateKey) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "plugin key already registered"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "plugin": p})
}

func (h *Handler) list(c *gin.Context) {
	kind := strings.TrimSpace(c.Query("kind"))
	if kind != "" && !ValidKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "kind must be one of panel, datasource, integration"})
		return
	}

	items, err := h.repo.List(c.Request.Context(), kind, c.Query("enabled") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "plugins": items})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.repo.Get(c.Request.Context(), strings.ToLower(c.Param("key")))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "plugin not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "plugin": p})
}

type updateReq struct {
	Name    *string         `json:"name"`
	Version *string         `json:"version"`
	Config  json.RawMessage `json:"config"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if len(req.Config) > 0 && !json.Valid(req.Config) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "config must be valid JSON"})
		return
	}

	p, err := h.repo.Update(c.Request.Context(), strings.ToLower(c.Param("key")), req.Name, req.Version, req.Config)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "plugin not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "plugin": p})
}

func (h *Handler) enable(c *gin.Context)  { h.setEnabled(c, true) }
func (h *Handler) disable(c *gin.Context) { h.setEnabled(c, false) }

func (h *Handler) setEnabled(c *gin.Context, enabled bool) {
	p, err := h.repo.SetEnabled(c.Request.Context(), strings.ToLower(c.Param("key")), enabled)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "plugin not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "plugin": p})
}

func (h *Handler) delete(c *gin.Context) {
	ok, err := h.repo.Delete(c.Request.Context(), strings.ToLower(c.Param("key")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "plugin not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
