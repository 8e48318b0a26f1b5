package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/queries"
)

type QueryHistoryRepository struct {
	db *sql.DB
}

func NewQueryHistoryRepository(db *sql.DB) *QueryHistoryRepository {
	return &QueryHistoryRepository{db: db}
}

// Insert appends a query/response pair; entries are never updated
func (r *QueryHistoryRepository) Insert(ctx context.Context, e *queries.Entry) (*queries.Entry, error) {
	const q = `
INSERT INTO query_history
  (id, user_id, company_id, query_text, response_text, chart_data, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at;`

	out := *e
	if out.ID == "" {
		out.ID = queries.ID(uuid.NewString())
	}
	createdAt := out.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, q,
		out.ID, out.UserID, nullIfBlank(string(out.CompanyID)), out.QueryText, out.ResponseText,
		nullJSON(out.ChartData), createdAt,
	).Scan(&out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns a user's latest entries ordered by created_at desc
func (r *QueryHistoryRepository) History(ctx context.Context, userID string, limit int) ([]*queries.Entry, error) {
	if limit <= 0 {
		limit = queries.DefaultHistoryLimit
	}
	const q = `
SELECT h.id, h.user_id, COALESCE(h.company_id::text, ''), h.query_text, h.response_text,
       h.chart_data, h.created_at, c.name
FROM query_history h
LEFT JOIN companies c ON c.id = h.company_id
WHERE h.user_id = $1
ORDER BY h.created_at DESC, h.id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*queries.Entry
	for rows.Next() {
		var e queries.Entry
		var chart []byte
		var companyName sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.QueryText, &e.ResponseText,
			&chart, &e.CreatedAt, &companyName); err != nil {
			return nil, err
		}
		if len(chart) > 0 {
			e.ChartData = chart
		}
		if companyName.Valid {
			e.Company = &company.Company{ID: e.CompanyID, Name: companyName.String}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
