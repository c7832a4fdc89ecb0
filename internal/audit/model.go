package audit

import (
	"encoding/json"
	"time"
)

// Entry is one audit log row. Detail carries free-form JSON (old/new values,
// request metadata).
type Entry struct {
	ID        int64           `json:"id"`
	ActorID   string          `json:"actor_id,omitempty"`
	ActorUID  string          `json:"actor_uid"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ListFilter struct {
	Entity   string
	ActorUID string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}
