package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
)

type BalanceSheetRepository struct {
	db *sql.DB
}

func NewBalanceSheetRepository(db *sql.DB) *BalanceSheetRepository {
	return &BalanceSheetRepository{db: db}
}

const balanceSheetColumns = `
b.id, b.company_id, COALESCE(b.document_id::text, ''), b.fiscal_year, b.status,
b.total_assets, b.total_liabilities, b.total_equity,
b.current_assets, b.current_liabilities, b.revenue, b.net_profit, b.created_at,
c.id, c.name, COALESCE(c.parent_group, ''),
d.filename, d.original_filename, d.file_url
FROM balance_sheets b
JOIN companies c ON c.id = b.company_id
LEFT JOIN documents d ON d.id = b.document_id`

func (r *BalanceSheetRepository) query(ctx context.Context, q string, args ...any) ([]*balancesheets.BalanceSheet, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*balancesheets.BalanceSheet
	for rows.Next() {
		var b balancesheets.BalanceSheet
		var c company.Company
		var fn, orig, url sql.NullString
		if err := rows.Scan(
			&b.ID, &b.CompanyID, &b.DocumentID, &b.FiscalYear, &b.Status,
			&b.TotalAssets, &b.TotalLiabilities, &b.TotalEquity,
			&b.CurrentAssets, &b.CurrentLiabilities, &b.Revenue, &b.NetProfit, &b.CreatedAt,
			&c.ID, &c.Name, &c.ParentGroup,
			&fn, &orig, &url,
		); err != nil {
			return nil, err
		}
		b.Company = &c
		if fn.Valid {
			b.Document = &balancesheets.DocumentRef{Filename: fn.String, OriginalFilename: orig.String, FileURL: url.String}
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// ListByCompany returns one company's balance sheets, newest fiscal year first
func (r *BalanceSheetRepository) ListByCompany(ctx context.Context, companyID company.ID, f balancesheets.Filter) ([]*balancesheets.BalanceSheet, error) {
	where := []string{"b.company_id = $1"}
	args := []any{companyID}
	if f.StartYear != 0 {
		args = append(args, f.StartYear)
		where = append(where, fmt.Sprintf("b.fiscal_year >= $%d", len(args)))
	}
	if f.EndYear != 0 {
		args = append(args, f.EndYear)
		where = append(where, fmt.Sprintf("b.fiscal_year <= $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("b.status = $%d", len(args)))
	}

	q := `SELECT ` + balanceSheetColumns + `
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY b.fiscal_year DESC, b.created_at DESC;`
	return r.query(ctx, q, args...)
}

// ProcessedSince returns processed rows across companies, oldest fiscal year first
func (r *BalanceSheetRepository) ProcessedSince(ctx context.Context, companyIDs []company.ID, fromYear int) ([]*balancesheets.BalanceSheet, error) {
	q := `SELECT ` + balanceSheetColumns + `
WHERE b.company_id = ANY($1) AND b.fiscal_year >= $2 AND b.status = $3
ORDER BY b.fiscal_year ASC, c.name ASC;`
	return r.query(ctx, q, pq.Array(toStrings(companyIDs)), fromYear, documents.StatusProcessed)
}
