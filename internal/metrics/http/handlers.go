package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/metrics/domain"
)

type ingestReq struct {
	Points []domain.MetricPoint `json:"points"`
}

func (h *Handler) ingest(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Points) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: points required"})
		return
	}

	seen := map[string]bool{}
	for i := range req.Points {
		p := &req.Points[i]
		p.EquipmentCode = strings.ToUpper(strings.TrimSpace(p.EquipmentCode))
		if p.EquipmentCode == "" || strings.TrimSpace(p.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "equipment_code and name required on every point"})
			return
		}
		seen[p.EquipmentCode] = true
	}

	if err := h.timeseries.InsertBatch(c.Request.Context(), req.Points); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	// Drop cached OEE windows for every equipment unit in the batch.
	for code := range seen {
		h.summaries.Invalidate(c.Request.Context(), code)
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "inserted": len(req.Points)})
}

func (h *Handler) query(c *gin.Context) {
	code := strings.TrimSpace(c.Query("equipment"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "equipment is required"})
		return
	}

	from, to, err := parseRange(c.Query("from"), c.Query("to"), 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	var names []string
	if raw := strings.TrimSpace(c.Query("names")); raw != "" {
		names = strings.Split(raw, ",")
	}

	points, err := h.timeseries.QueryRange(c.Request.Context(), strings.ToUpper(code), from, to, names)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "points": points})
}

func (h *Handler) oee(c *gin.Context) {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid window"})
			return
		}
		window = d
	}

	summary, err := h.summaries.Summary(c.Request.Context(), strings.ToUpper(c.Param("code")), window)
	if err != nil {
		if err == domain.ErrNoData {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no metric data in window"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "oee": summary})
}

func (h *Handler) oeeRollups(c *gin.Context) {
	from, to, err := parseRange(c.Query("from"), c.Query("to"), 7*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	rollups, err := h.rollups.Range(c.Request.Context(), strings.ToUpper(c.Param("code")), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "rollups": rollups})
}

func parseRange(fromRaw, toRaw string, def time.Duration) (time.Time, time.Time, error) {
	to := time.Now()
	if toRaw != "" {
		t, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTime("to")
		}
		to = t
	}

	from := to.Add(-def)
	if fromRaw != "" {
		t, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTime("from")
		}
		from = t
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, errInvalidTime("range")
	}
	return from, to, nil
}

type errInvalidTime string

func (e errInvalidTime) Error() string { return "invalid " + string(e) + " timestamp" }
