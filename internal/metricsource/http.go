package metricsource

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	client *Client
}

func Register(rg *gin.RouterGroup, client *Client) {
	h := &Handler{client: client}

	rg.GET("/metricsource/status", h.status)
	rg.GET("/metricsource/datasources", h.datasources)
	rg.GET("/metricsource/query_range", h.queryRange)
}

func (h *Handler) status(c *gin.Context) {
	stats := h.client.Stats()

	healthy := false
	if h.client.Configured() {
		healthy = h.client.Health(c.Request.Context()) == nil
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "healthy": healthy, "stats": stats})
}

func (h *Handler) datasources(c *gin.Context) {
	body, err := h.client.Datasources(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (h *Handler) queryRange(c *gin.Context) {
	query := c.Query("query")
	start := c.Query("start")
	end := c.Query("end")
	if query == "" || start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "query, start and end are required"})
		return
	}

	body, err := h.client.QueryRange(c.Request.Context(), query, start, end, c.Query("step"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (h *Handler) upstreamError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotConfigured) {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "metrics source not configured"})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
}
