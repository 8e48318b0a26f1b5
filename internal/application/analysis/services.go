package analysis

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application/financial"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/balancesheets"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

// ratioPlaces is the rounding applied to ratios and percentages.
const ratioPlaces = 2

var hundred = decimal.NewFromInt(100)

// Year aggregates every processed balance sheet of one fiscal year.
type Year struct {
	FiscalYear         int             `json:"fiscalYear"`
	Companies          int             `json:"companies"`
	Revenue            decimal.Decimal `json:"revenue"`
	NetProfit          decimal.Decimal `json:"netProfit"`
	TotalAssets        decimal.Decimal `json:"totalAssets"`
	TotalLiabilities   decimal.Decimal `json:"totalLiabilities"`
	TotalEquity        decimal.Decimal `json:"totalEquity"`
	CurrentAssets      decimal.Decimal `json:"currentAssets"`
	CurrentLiabilities decimal.Decimal `json:"currentLiabilities"`

	// Ratios are nil when their denominator is zero.
	CurrentRatio  *decimal.Decimal `json:"currentRatio"`
	DebtToEquity  *decimal.Decimal `json:"debtToEquity"`
	ROE           *decimal.Decimal `json:"roe"`
	ProfitMargin  *decimal.Decimal `json:"profitMargin"`
	RevenueGrowth *decimal.Decimal `json:"revenueGrowth"`
}

// Report is the analysis page payload, oldest year first.
type Report struct {
	Years  []Year `json:"years"`
	Latest *Year  `json:"latest,omitempty"`
}

// MetricsSource is the façade call the report is built from.
type MetricsSource interface {
	GetFinancialMetrics(ctx context.Context, companyIDs []company.ID, years int) financial.Result[[]*balancesheets.BalanceSheet]
}

type Service struct {
	Source MetricsSource
}

func NewService(src MetricsSource) *Service { return &Service{Source: src} }

// Report fetches the last years of metrics and aggregates them. Failures
// keep the façade's message.
func (s *Service) Report(ctx context.Context, companyIDs []company.ID, years int) financial.Result[Report] {
	res := s.Source.GetFinancialMetrics(ctx, companyIDs, years)
	if !res.Success {
		return financial.Result[Report]{Error: res.Error}
	}
	return financial.Result[Report]{Success: true, Data: Aggregate(res.Data)}
}

// Aggregate sums sheets per fiscal year and derives the ratios.
func Aggregate(sheets []*balancesheets.BalanceSheet) Report {
	byYear := map[int]*Year{}
	for _, b := range sheets {
		y, ok := byYear[b.FiscalYear]
		if !ok {
			y = &Year{FiscalYear: b.FiscalYear}
			byYear[b.FiscalYear] = y
		}
		y.Companies++
		y.Revenue = y.Revenue.Add(b.Revenue)
		y.NetProfit = y.NetProfit.Add(b.NetProfit)
		y.TotalAssets = y.TotalAssets.Add(b.TotalAssets)
		y.TotalLiabilities = y.TotalLiabilities.Add(b.TotalLiabilities)
		y.TotalEquity = y.TotalEquity.Add(b.TotalEquity)
		y.CurrentAssets = y.CurrentAssets.Add(b.CurrentAssets)
		y.CurrentLiabilities = y.CurrentLiabilities.Add(b.CurrentLiabilities)
	}

	out := Report{Years: make([]Year, 0, len(byYear))}
	for _, y := range byYear {
		y.CurrentRatio = ratio(y.CurrentAssets, y.CurrentLiabilities)
		y.DebtToEquity = ratio(y.TotalLiabilities, y.TotalEquity)
		y.ROE = percent(y.NetProfit, y.TotalEquity)
		y.ProfitMargin = percent(y.NetProfit, y.Revenue)
		out.Years = append(out.Years, *y)
	}
	sort.Slice(out.Years, func(i, j int) bool { return out.Years[i].FiscalYear < out.Years[j].FiscalYear })

	for i := 1; i < len(out.Years); i++ {
		prev, cur := out.Years[i-1], &out.Years[i]
		if g := percent(cur.Revenue.Sub(prev.Revenue), prev.Revenue); g != nil {
			cur.RevenueGrowth = g
		}
	}
	if n := len(out.Years); n > 0 {
		out.Latest = &out.Years[n-1]
	}
	return out
}

func ratio(num, den decimal.Decimal) *decimal.Decimal {
	if den.IsZero() {
		return nil
	}
	r := num.DivRound(den, ratioPlaces)
	return &r
}

func percent(num, den decimal.Decimal) *decimal.Decimal {
	if den.IsZero() {
		return nil
	}
	r := num.Mul(hundred).DivRound(den, ratioPlaces)
	return &r
}
