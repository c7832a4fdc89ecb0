package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("plugin not found")
	ErrDuplicateKey = errors.New("plugin key already registered")
)

// Plugin kinds.
const (
	KindPanel       = "panel"
	KindDatasource  = "datasource"
	KindIntegration = "integration"
)

func ValidKind(k string) bool {
	switch k {
	case KindPanel, KindDatasource, KindIntegration:
		return true
	default:
		return false
	}
}

type Plugin struct {
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Version   string          `json:"version"`
	Config    json.RawMessage `json:"config"`
	Enabled   bool            `json:"enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, p *Plugin) (*Plugin, error) {
	if len(p.Config) == 0 {
		p.Config = json.RawMessage(`{}`)
	}

	const q = `
insert into plugins (key, name, kind, version, config, enabled)
values ($1, $2, $3, $4, $5, $6)
returning key, name, kind, version, config, enabled, created_at, updated_at;
`
	var out Plugin
	err := r.db.QueryRow(ctx, q, p.Key, p.Name, p.Kind, p.Version, p.Config, p.Enabled).
		Scan(&out.Key, &out.Name, &out.Kind, &out.Version, &out.Config, &out.Enabled, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		// unique violation on key
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &out, nil
}

func (r *Repo) List(ctx context.Context, kind string, enabledOnly bool) ([]Plugin, error) {
	const q = `
select key, name, kind, version, config, enabled, created_at, updated_at
from plugins
where ($1 = '' or kind = $1)
  and (not $2 or enabled)
order by key;
`
	rows, err := r.db.Query(ctx, q, kind, enabledOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Plugin, 0, 8)
	for rows.Next() {
		var p Plugin
		if err := rows.Scan(&p.Key, &p.Name, &p.Kind, &p.Version, &p.Config, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, key string) (*Plugin, error) {
	const q = `
select key, name, kind, version, config, enabled, created_at, updated_at
from plugins
where key = $1;
`
	var p Plugin
	err := r.db.QueryRow(ctx, q, key).
		Scan(&p.Key, &p.Name, &p.Kind, &p.Version, &p.Config, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update overwrites mutable fields. Nil / empty means keep the stored value.
func (r *Repo) Update(ctx context.Context, key string, name, version *string, config json.RawMessage) (*Plugin, error) {
	const q = `
update plugins
set
  name = coalesce($2, name),
  version = coalesce($3, version),
  config = coalesce($4, config),
  updated_at = now()
where key = $1
returning key, name, kind, version, config, enabled, created_at, updated_at;
`
	var configArg any
	if len(config) > 0 {
		configArg = config
	}

	var p Plugin
	err := r.db.QueryRow(ctx, q, key, name, version, configArg).
		Scan(&p.Key, &p.Name, &p.Kind, &p.Version, &p.Config, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) SetEnabled(ctx context.Context, key string, enabled bool) (*Plugin, error) {
	const q = `
update plugins
set enabled = $2, updated_at = now()
where key = $1
returning key, name, kind, version, config, enabled, created_at, updated_at;
`
	var p Plugin
	err := r.db.QueryRow(ctx, q, key, enabled).
		Scan(&p.Key, &p.Name, &p.Kind, &p.Version, &p.Config, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Delete(ctx context.Context, key string) (bool, error) {
	ct, err := r.db.Exec(ctx, `delete from plugins where key = $1;`, key)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
