package balancesheets

import (
	"context"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

// Repository port
type Repository interface {
	ListByCompany(ctx context.Context, companyID company.ID, f Filter) ([]*BalanceSheet, error)
	// ProcessedSince returns processed rows for the given companies with
	// fiscal_year >= fromYear, oldest first.
	ProcessedSince(ctx context.Context, companyIDs []company.ID, fromYear int) ([]*BalanceSheet, error)
}
