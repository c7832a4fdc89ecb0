package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Record(ctx context.Context, e Entry) error {
	if e.Action == "" || e.Entity == "" {
		return fmt.Errorf("audit: action and entity required")
	}

	detail := e.Detail
	if len(detail) == 0 {
		detail = []byte("{}")
	}

	const q = `
		INSERT INTO audit_logs (actor_id, actor_uid, action, entity, entity_id, detail)
		VALUES (NULLIF($1,'')::uuid, $2, $3, $4, NULLIF($5,''), $6)
	`
	_, err := r.db.ExecContext(ctx, q, e.ActorID, e.ActorUID, e.Action, e.Entity, e.EntityID, []byte(detail))
	if err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Until.IsZero() {
		f.Until = time.Now()
	}
	if f.Since.IsZero() {
		f.Since = f.Until.AddDate(0, 0, -7)
	}

	const q = `
		SELECT id, COALESCE(actor_id::text,''), actor_uid, action, entity, COALESCE(entity_id,''), detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR entity = $1)
		  AND ($2 = '' OR actor_uid = $2)
		  AND created_at >= $3 AND created_at <= $4
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.db.QueryContext(ctx, q, f.Entity, f.ActorUID, f.Since, f.Until, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, f.Limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorUID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes entries past the retention window. Returns rows removed.
func (r *Repo) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	const q = `DELETE FROM audit_logs WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
