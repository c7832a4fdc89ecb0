package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
	"github.com/plantpulse/plantpulse-backend/internal/audit"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
)

func (h *Handler) list(c *gin.Context) {
	f := domain.ListFilter{
		Status:        strings.TrimSpace(c.Query("status")),
		Severity:      strings.TrimSpace(c.Query("severity")),
		EquipmentCode: strings.ToUpper(strings.TrimSpace(c.Query("equipment"))),
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	alerts, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list alerts"})
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "alerts": alerts})
}

func (h *Handler) ack(c *gin.Context) {
	ackedBy := auth.UserDBID(c)
	if ackedBy == "" {
		ackedBy = auth.UserFirebaseUID(c)
	}

	a, err := h.repo.Acknowledge(c.Request.Context(), c.Param("id"), ackedBy)
	if errors.Is(err, domain.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "alert not found or not firing"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to acknowledge alert"})
		return
	}

	audit.RecordChange(c, h.audit, "alerts.ack", "alerts", a.ID,
		gin.H{"from": domain.StatusFiring, "to": a.Status, "acked_by": ackedBy})

	c.JSON(http.StatusOK, gin.H{"ok": true, "alert": a})
}

func (h *Handler) resolve(c *gin.Context) {
	a, err := h.repo.Resolve(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "alert not found or already resolved"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to resolve alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "alert": a})
}

// evaluate triggers one evaluation pass outside the schedule. Handy when a
// rule was just created and the operator does not want to wait a minute.
func (h *Handler) evaluate(c *gin.Context) {
	if err := h.evaluator.EvaluateOnce(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type ruleReq struct {
	Name          string  `json:"name" binding:"required"`
	Metric        string  `json:"metric" binding:"required"`
	EquipmentCode string  `json:"equipment_code"`
	Condition     string  `json:"condition" binding:"required"`
	Threshold     float64 `json:"threshold"`
	WindowMin     int     `json:"window_min"`
	Severity      string  `json:"severity"`
	Enabled       *bool   `json:"enabled"`
}

func (req *ruleReq) toDomain() (*domain.AlertRule, string) {
	if !domain.ValidCondition(req.Condition) {
		return nil, "condition must be one of gt, gte, lt, lte"
	}
	sev := domain.Severity(req.Severity)
	if sev == "" {
		sev = domain.SeverityWarning
	}
	if !domain.ValidSeverity(sev) {
		return nil, "severity must be one of info, warning, critical"
	}
	if req.WindowMin <= 0 {
		req.WindowMin = 15
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return &domain.AlertRule{
		Name:          strings.TrimSpace(req.Name),
		Metric:        strings.TrimSpace(req.Metric),
		EquipmentCode: strings.ToUpper(strings.TrimSpace(req.EquipmentCode)),
		Condition:     req.Condition,
		Threshold:     req.Threshold,
		WindowMin:     req.WindowMin,
		Severity:      sev,
		Enabled:       enabled,
	}, ""
}

func (h *Handler) listRules(c *gin.Context) {
	rules, err := h.repo.ListRules(c.Request.Context(), c.Query("enabled") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list rules"})
		return
	}
	if rules == nil {
		rules = []domain.AlertRule{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rules": rules})
}

func (h *Handler) createRule(c *gin.Context) {
	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload: " + err.Error()})
		return
	}
	rule, msg := req.toDomain()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
		return
	}

	out, err := h.repo.CreateRule(c.Request.Context(), rule)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to create rule"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "rule": out})
}

func (h *Handler) updateRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid rule id"})
		return
	}

	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload: " + err.Error()})
		return
	}
	rule, msg := req.toDomain()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
		return
	}
	rule.ID = id

	out, err := h.repo.UpdateRule(c.Request.Context(), rule)
	if errors.Is(err, domain.ErrRuleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "rule not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to update rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rule": out})
}

func (h *Handler) deleteRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid rule id"})
		return
	}

	err = h.repo.DeleteRule(c.Request.Context(), id)
	if errors.Is(err, domain.ErrRuleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "rule not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to delete rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
