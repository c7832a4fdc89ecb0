package dashboards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("dashboard not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type Dashboard struct {
	PublicID  string          `json:"public_id"`
	Name      string          `json:"name"`
	Layout    json.RawMessage `json:"layout"`
	Starred   bool            `json:"starred"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r *Repo) Create(ctx context.Context, userDBID, name string, layout json.RawMessage) (*Dashboard, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if len(layout) == 0 {
		layout = json.RawMessage(`{"panels":[]}`)
	}

	for i := 0; i < 5; i++ {
		publicID, err := NewPublicID("dash")
		if err != nil {
			return nil, err
		}

		const q = `
insert into dashboards (public_id, user_id, name, layout)
values ($1, $2::uuid, $3, $4)
returning public_id, name, layout, starred, created_at, updated_at;
`
		var d Dashboard
		err = r.db.QueryRow(ctx, q, publicID, userDBID, name, layout).
			Scan(&d.PublicID, &d.Name, &d.Layout, &d.Starred, &d.CreatedAt, &d.UpdatedAt)

		if err == nil {
			return &d, nil
		}

		// unique violation on public_id → retry
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique dashboard id")
}

func (r *Repo) List(ctx context.Context, userDBID string) ([]Dashboard, error) {
	const q = `
select public_id, name, layout, starred, created_at, updated_at
from dashboards
where user_id = $1::uuid and deleted_at is null
order by starred desc, updated_at desc;
`
	rows, err := r.db.Query(ctx, q, userDBID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Dashboard, 0, 16)
	for rows.Next() {
		var d Dashboard
		if err := rows.Scan(&d.PublicID, &d.Name, &d.Layout, &d.Starred, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, userDBID, publicID string) (*Dashboard, error) {
	const q = `
select public_id, name, layout, starred, created_at, updated_at
from dashboards
where user_id = $1::uuid and public_id = $2 and deleted_at is null;
`
	var d Dashboard
	err := r.db.QueryRow(ctx, q, userDBID, publicID).
		Scan(&d.PublicID, &d.Name, &d.Layout, &d.Starred, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Update overwrites name and/or layout. Nil means keep the stored value.
func (r *Repo) Update(ctx context.Context, userDBID, publicID string, name *string, layout json.RawMessage) (*Dashboard, error) {
	const q = `
update dashboards
set
  name = coalesce($3, name),
  layout = coalesce($4, layout),
  updated_at = now()
where user_id = $1::uuid and public_id = $2 and deleted_at is null
returning public_id, name, layout, starred, created_at, updated_at;
`
	var layoutArg any
	if len(layout) > 0 {
		layoutArg = layout
	}

	var d Dashboard
	err := r.db.QueryRow(ctx, q, userDBID, publicID, name, layoutArg).
		Scan(&d.PublicID, &d.Name, &d.Layout, &d.Starred, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) SetStarred(ctx context.Context, userDBID, publicID string, starred bool) (*Dashboard, error) {
	const q = `
update dashboards
set starred = $3, updated_at = now()
where user_id = $1::uuid and public_id = $2 and deleted_at is null
returning public_id, name, layout, starred, created_at, updated_at;
`
	var d Dashboard
	err := r.db.QueryRow(ctx, q, userDBID, publicID, starred).
		Scan(&d.PublicID, &d.Name, &d.Layout, &d.Starred, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) SoftDelete(ctx context.Context, userDBID, publicID string) (bool, error) {
	const q = `
update dashboards
set deleted_at = now(), updated_at = now()
where user_id = $1::uuid and public_id = $2 and deleted_at is null;
`
	ct, err := r.db.Exec(ctx, q, userDBID, publicID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
