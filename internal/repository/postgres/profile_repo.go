package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/EduPortal/internal/domain/profile"
)

var _ profile.Repo = (*ProfileRepo)(nil)

type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

const (
	qProfileInsert = `
INSERT INTO profiles (full_name, email, phone, role, password_hash)
VALUES ($1, $2, NULLIF($3, ''), $4, $5)
RETURNING id, created_at, updated_at;`

	qProfileByID = `
SELECT id, full_name, email, COALESCE(phone, ''), role, password_hash, created_at, updated_at
FROM profiles
WHERE id = $1;`

	qProfileByEmail = `
SELECT id, full_name, email, COALESCE(phone, ''), role, password_hash, created_at, updated_at
FROM profiles
WHERE lower(email) = lower($1);`

	qProfilesByRoles = `
SELECT id, full_name, email, COALESCE(phone, ''), role, password_hash, created_at, updated_at
FROM profiles
WHERE role = ANY($1)
ORDER BY id;`
)

func (r *ProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qProfileInsert, p.FullName, p.Email, p.Phone, string(p.Role), p.Password).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("profile insert: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id int64) (*profile.Profile, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var p profile.Profile
	if err := scanProfile(r.db.Pool.QueryRow(ctx, qProfileByID, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var p profile.Profile
	if err := scanProfile(r.db.Pool.QueryRow(ctx, qProfileByEmail, email), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) ListByRoles(ctx context.Context, roles ...profile.Role) ([]*profile.Profile, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qProfilesByRoles, names)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []*profile.Profile
	for rows.Next() {
		var p profile.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row, out *profile.Profile) error {
	var role string
	if err := row.Scan(&out.ID, &out.FullName, &out.Email, &out.Phone, &role, &out.Password, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan profile: %w", err)
	}
	out.Role = profile.Role(role)
	return nil
}
