package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantpulse/plantpulse-backend/internal/auth/domain"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

type UpsertUser struct {
	FirebaseUID string
	Email       string
	DisplayName string
}

// EnsureUser upserts the user row on first sight and returns its id and role.
// New users start as viewers.
func (r *UserRepository) EnsureUser(ctx context.Context, u UpsertUser) (id, role string, err error) {
	if u.FirebaseUID == "" {
		return "", "", fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into users (firebase_uid, email, display_name, role, updated_at)
values ($1, nullif($2,''), nullif($3,''), 'viewer', now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  updated_at = now()
returning id::text, role;
`
	if err := r.db.QueryRow(ctx, q, u.FirebaseUID, u.Email, u.DisplayName).Scan(&id, &role); err != nil {
		return "", "", err
	}
	return id, role, nil
}

func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	const q = `
select id::text, firebase_uid, coalesce(email,''), display_name, role, site, created_at, updated_at
from users
where firebase_uid = $1;
`
	var u domain.User
	err := r.db.QueryRow(ctx, q, uid).Scan(
		&u.ID, &u.FirebaseUID, &u.Email, &u.DisplayName, &u.Role, &u.Site, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UpdateProfile struct {
	DisplayName *string
	Site        *string
}

func (r *UserRepository) UpdateProfile(ctx context.Context, uid string, p UpdateProfile) (*domain.User, error) {
	const q = `
update users
set
  display_name = coalesce($2, display_name),
  site = coalesce($3, site),
  updated_at = now()
where firebase_uid = $1
returning id::text, firebase_uid, coalesce(email,''), display_name, role, site, created_at, updated_at;
`
	var u domain.User
	err := r.db.QueryRow(ctx, q, uid, p.DisplayName, p.Site).Scan(
		&u.ID, &u.FirebaseUID, &u.Email, &u.DisplayName, &u.Role, &u.Site, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRole changes a user's role (admin only at the HTTP layer).
func (r *UserRepository) SetRole(ctx context.Context, uid, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	const q = `
update users
set role = $2, updated_at = now()
where firebase_uid = $1
returning id::text, firebase_uid, coalesce(email,''), display_name, role, site, created_at, updated_at;
`
	var u domain.User
	err := r.db.QueryRow(ctx, q, uid, role).Scan(
		&u.ID, &u.FirebaseUID, &u.Email, &u.DisplayName, &u.Role, &u.Site, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
