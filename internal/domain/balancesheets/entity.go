package balancesheets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/documents"
)

type ID string

// Status enum. Balance sheets share the document lifecycle vocabulary.
type Status = documents.Status

// BalanceSheet is one fiscal year of figures for one company.
type BalanceSheet struct {
	ID                 ID              `json:"id"`
	CompanyID          company.ID      `json:"company_id"`
	DocumentID         documents.ID    `json:"document_id,omitempty"`
	FiscalYear         int             `json:"fiscal_year"`
	Status             Status          `json:"status"`
	TotalAssets        decimal.Decimal `json:"total_assets"`
	TotalLiabilities   decimal.Decimal `json:"total_liabilities"`
	TotalEquity        decimal.Decimal `json:"total_equity"`
	CurrentAssets      decimal.Decimal `json:"current_assets"`
	CurrentLiabilities decimal.Decimal `json:"current_liabilities"`
	Revenue            decimal.Decimal `json:"revenue"`
	NetProfit          decimal.Decimal `json:"net_profit"`
	CreatedAt          time.Time       `json:"created_at"`

	Company  *company.Company `json:"companies,omitempty"`
	Document *DocumentRef     `json:"documents,omitempty"`
}

// DocumentRef is the source-document subset joined onto a balance sheet.
type DocumentRef struct {
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	FileURL          string `json:"file_url"`
}

// Filter narrows GetBalanceSheets. Zero values mean "no bound".
type Filter struct {
	StartYear int    `json:"startYear,omitempty"`
	EndYear   int    `json:"endYear,omitempty"`
	Status    Status `json:"status,omitempty"`
}

// Includes reports whether b passes the filter.
func (f Filter) Includes(b *BalanceSheet) bool {
	if f.StartYear != 0 && b.FiscalYear < f.StartYear {
		return false
	}
	if f.EndYear != 0 && b.FiscalYear > f.EndYear {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}
