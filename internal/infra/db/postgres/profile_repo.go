package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

// ProfileRepository backs the identity provider with user_profiles
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*identity.Credentials, error) {
	const q = `
SELECT id, email, full_name, role, password_hash
FROM user_profiles
WHERE lower(email) = lower($1);`
	var c identity.Credentials
	err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(email)).Scan(
		&c.Profile.ID, &c.Profile.Email, &c.Profile.FullName, &c.Profile.Role, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ProfileRepository) Create(ctx context.Context, c *identity.Credentials) error {
	const q = `
INSERT INTO user_profiles (id, email, full_name, role, password_hash, status)
VALUES ($1,$2,$3,$4,$5,'active');`
	_, err := r.db.ExecContext(ctx, q,
		c.Profile.ID, strings.TrimSpace(c.Profile.Email), c.Profile.FullName, c.Profile.Role, c.PasswordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return identity.ErrEmailTaken
	}
	return err
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*identity.UserProfile, error) {
	const q = `SELECT id, email, full_name, role FROM user_profiles WHERE id = $1;`
	var p identity.UserProfile
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// TouchLogin records a successful sign-in
func (r *ProfileRepository) TouchLogin(ctx context.Context, id string) error {
	const q = `UPDATE user_profiles SET last_login = now(), login_count = login_count + 1 WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
