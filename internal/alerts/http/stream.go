package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/alerts/domain"
)

// stream pushes alert events to the client over Server-Sent Events (SSE).
// It sends the current firing set first, then forwards events from the
// evaluator's Redis pub/sub channel as they happen.
func (h *Handler) stream(c *gin.Context) {
	if h.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "event streaming unavailable"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()

	// Snapshot first so the client does not need a second request to learn
	// what is already firing.
	firing, err := h.repo.Firing(ctx)
	if err == nil {
		if firing == nil {
			firing = []domain.Alert{}
		}
		snapshot, _ := json.Marshal(gin.H{"alerts": firing})
		fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", snapshot)
		flusher.Flush()
	}

	sub := h.rdb.Subscribe(ctx, domain.EventChannel)
	defer sub.Close()
	events := sub.Channel()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case msg, open := <-events:
			if !open {
				return
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, msg.Payload)
			flusher.Flush()
		}
	}
}
