package postgres

import (
	"context"
	"database/sql"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

type CompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// List returns every company ordered by name
func (r *CompanyRepository) List(ctx context.Context) ([]*company.Company, error) {
	const q = `
SELECT id, name, COALESCE(parent_group, '')
FROM companies
ORDER BY name;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*company.Company
	for rows.Next() {
		var c company.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentGroup); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
