package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
)

// UserRepository is the user-management view over user_profiles
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
u.id, u.full_name, u.email, u.role, u.companies, u.status, u.last_login, u.created_at, u.login_count,
(SELECT count(*) FROM query_history h WHERE h.user_id = u.id)
FROM user_profiles u`

func scanUser(s rowScanner) (*users.ManagedUser, error) {
	var u users.ManagedUser
	var companies pq.StringArray
	var lastLogin sql.NullTime
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &companies, &u.Status,
		&lastLogin, &u.CreatedAt, &u.LoginCount, &u.QueriesCount); err != nil {
		return nil, err
	}
	u.Companies = []string(companies)
	if u.Companies == nil {
		u.Companies = []string{}
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*users.ManagedUser, error) {
	q := `SELECT ` + userColumns + `
ORDER BY u.created_at DESC, u.id;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*users.ManagedUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) Get(ctx context.Context, id string) (*users.ManagedUser, error) {
	q := `SELECT ` + userColumns + `
WHERE u.id = $1;`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, u *users.ManagedUser, passwordHash string) error {
	const q = `
INSERT INTO user_profiles (id, full_name, email, role, companies, status, password_hash)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at;`
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.Role, pq.Array(u.Companies), u.Status, passwordHash,
	).Scan(&u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return identity.ErrEmailTaken
	}
	return err
}

// Update rewrites profile fields; an empty hash keeps the current password
func (r *UserRepository) Update(ctx context.Context, u *users.ManagedUser, passwordHash string) error {
	const q = `
UPDATE user_profiles
SET full_name = $2, email = $3, role = $4, companies = $5, status = $6,
    password_hash = COALESCE(NULLIF($7, ''), password_hash)
WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q,
		u.ID, u.Name, u.Email, u.Role, pq.Array(u.Companies), u.Status, passwordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return identity.ErrEmailTaken
	}
	if err != nil {
		return err
	}
	return affectedOne(res, users.ErrNotFound)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	return affectedOne(res, users.ErrNotFound)
}

// SetStatus changes the status of every listed user
func (r *UserRepository) SetStatus(ctx context.Context, status users.Status, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const q = `UPDATE user_profiles SET status = $1 WHERE id = ANY($2);`
	res, err := r.db.ExecContext(ctx, q, status, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func affectedOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
