package equipment

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, e *Equipment) (*Equipment, error) {
	if e.Status == "" {
		e.Status = StatusIdle
	}

	const q = `
insert into equipment (code, name, line, site, status)
values ($1, $2, nullif($3,''), nullif($4,''), $5)
returning id::text, code, name, coalesce(line,''), coalesce(site,''), status, created_at, updated_at;
`
	var out Equipment
	err := r.db.QueryRow(ctx, q, strings.ToUpper(e.Code), e.Name, e.Line, e.Site, e.Status).
		Scan(&out.ID, &out.Code, &out.Name, &out.Line, &out.Site, &out.Status, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		// unique violation on code
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return &out, nil
}

func (r *Repo) List(ctx context.Context, site, line string) ([]Equipment, error) {
	const q = `
select id::text, code, name, coalesce(line,''), coalesce(site,''), status, created_at, updated_at
from equipment
where ($1 = '' or site = $1)
  and ($2 = '' or line = $2)
order by code;
`
	rows, err := r.db.Query(ctx, q, site, line)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Equipment, 0, 16)
	for rows.Next() {
		var e Equipment
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Line, &e.Site, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*Equipment, error) {
	const q = `
select id::text, code, name, coalesce(line,''), coalesce(site,''), status, created_at, updated_at
from equipment
where code = $1;
`
	var e Equipment
	err := r.db.QueryRow(ctx, q, strings.ToUpper(code)).
		Scan(&e.ID, &e.Code, &e.Name, &e.Line, &e.Site, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) Update(ctx context.Context, code string, name, line, site *string) (*Equipment, error) {
	const q = `
update equipment
set
  name = coalesce($2, name),
  line = coalesce($3, line),
  site = coalesce($4, site),
  updated_at = now()
where code = $1
returning id::text, code, name, coalesce(line,''), coalesce(site,''), status, created_at, updated_at;
`
	var e Equipment
	err := r.db.QueryRow(ctx, q, strings.ToUpper(code), name, line, site).
		Scan(&e.ID, &e.Code, &e.Name, &e.Line, &e.Site, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) SetStatus(ctx context.Context, code, status string) (*Equipment, error) {
	const q = `
update equipment
set status = $2, updated_at = now()
where code = $1
returning id::text, code, name, coalesce(line,''), coalesce(site,''), status, created_at, updated_at;
`
	var e Equipment
	err := r.db.QueryRow(ctx, q, strings.ToUpper(code), status).
		Scan(&e.ID, &e.Code, &e.Name, &e.Line, &e.Site, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DownSince returns how long equipment has been in status "down", keyed by
// code, for every unit currently down. Used by the downtime alert rule.
func (r *Repo) DownSince(ctx context.Context) (map[string]Equipment, error) {
	const q = `
select id::text, code, name, coalesce(line,''), coalesce(site,''), status, created_at, updated_at
from equipment
where status = 'down';
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]Equipment{}
	for rows.Next() {
		var e Equipment
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Line, &e.Site, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out[e.Code] = e
	}
	return out, rows.Err()
}
