package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/audit"
	"github.com/plantpulse/plantpulse-backend/internal/equipment"
)

type createReq struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Line   string `json:"line,omitempty"`
	Site   string `json:"site,omitempty"`
	Status string `json:"status,omitempty"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Status != "" && !equipment.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown status"})
		return
	}

	e, err := h.repo.Create(c.Request.Context(), &equipment.Equipment{
		Code:   strings.TrimSpace(req.Code),
		Name:   strings.TrimSpace(req.Name),
		Line:   req.Line,
		Site:   req.Site,
		Status: req.Status,
	})
	if err != nil {
		if err == equipment.ErrDuplicateCode {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "equipment code already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "equipment": e})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.repo.List(c.Request.Context(), c.Query("site"), c.Query("line"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "equipment": items})
}

func (h *Handler) get(c *gin.Context) {
	e, err := h.repo.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if err == equipment.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "equipment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "equipment": e})
}

type updateReq struct {
	Name *string `json:"name,omitempty"`
	Line *string `json:"line,omitempty"`
	Site *string `json:"site,omitempty"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	e, err := h.repo.Update(c.Request.Context(), c.Param("code"), req.Name, req.Line, req.Site)
	if err != nil {
		if err == equipment.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "equipment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "equipment": e})
}

type setStatusReq struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(c *gin.Context) {
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil || !equipment.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown status"})
		return
	}

	var from string
	if prev, err := h.repo.GetByCode(c.Request.Context(), c.Param("code")); err == nil {
		from = prev.Status
	}

	e, err := h.repo.SetStatus(c.Request.Context(), c.Param("code"), req.Status)
	if err != nil {
		if err == equipment.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "equipment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	audit.RecordChange(c, h.audit, "equipment.status", "equipment", e.Code,
		gin.H{"from": from, "to": e.Status})

	c.JSON(http.StatusOK, gin.H{"ok": true, "equipment": e})
}
