package audit

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/auth"
)

// Middleware records mutating API calls after the handler runs. Reads are not
// audited. The write happens on a detached context so a slow insert never
// blocks the response path longer than its own timeout.
func Middleware(repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH", "DELETE":
		default:
			c.Next()
			return
		}

		path := c.Request.URL.Path
		c.Next()

		detail, _ := json.Marshal(gin.H{
			"status":     c.Writer.Status(),
			"request_id": c.GetString("request_id"),
		})

		entry := Entry{
			ActorID:  auth.UserDBID(c),
			ActorUID: auth.UserFirebaseUID(c),
			Action:   c.Request.Method + " " + c.FullPath(),
			Entity:   entityFromPath(path),
			Detail:   detail,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := repo.Record(ctx, entry); err != nil {
			log.Printf("[audit] record failed: %v", err)
		}
	}
}

// RecordChange writes an explicit entry from a domain writer (status change,
// alert ack). The actor comes from the request context; failures are logged,
// never surfaced to the caller.
func RecordChange(c *gin.Context, repo *Repo, action, entity, entityID string, detail any) {
	if repo == nil {
		return
	}
	payload, _ := json.Marshal(detail)
	entry := Entry{
		ActorID:  auth.UserDBID(c),
		ActorUID: auth.UserFirebaseUID(c),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   payload,
	}
	if err := repo.Record(c.Request.Context(), entry); err != nil {
		log.Printf("[audit] record %s failed: %v", action, err)
	}
}

// entityFromPath extracts the first path segment after /api/v1.
func entityFromPath(path string) string {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return "api"
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i > 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "api"
	}
	return rest
}
