package mock

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	domain "github.com/bryanwahyu/balancesheet-gpt/internal/domain/ai"
)

// Responder answers with canned, keyword-matched financial insights after a
// simulated thinking delay.
type Responder struct {
	// MinDelay plus a random share of Jitter is waited before answering.
	MinDelay time.Duration
	Jitter   time.Duration

	mu         sync.Mutex
	randSource *rand.Rand
}

func NewResponder() *Responder {
	return &Responder{
		MinDelay:   2 * time.Second,
		Jitter:     2 * time.Second,
		randSource: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewResponderWithSeed returns a deterministic responder without delay.
func NewResponderWithSeed(seed int64) *Responder {
	return &Responder{randSource: rand.New(rand.NewSource(seed))}
}

func (r *Responder) float() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.randSource.Float64()
}

func (r *Responder) SubmitQuery(ctx context.Context, text string) (domain.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.QueryResult{}, domain.ErrEmptyQuery
	}

	delay := r.MinDelay + time.Duration(r.float()*float64(r.Jitter))
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.QueryResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	res := answer(text)
	res.Confidence = 0.85 + r.float()*0.15
	return res, nil
}

// answer picks the canned response; earlier keywords win.
func answer(query string) domain.QueryResult {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "revenue"):
		return revenueAnswer()
	case strings.Contains(q, "growth"):
		return growthAnswer()
	case strings.Contains(q, "ratio"), strings.Contains(q, "calculate"):
		return ratioAnswer()
	case strings.Contains(q, "asset"), strings.Contains(q, "liabilit"):
		return assetAnswer()
	}
	return clarifyAnswer(query)
}

func revenueAnswer() domain.QueryResult {
	return domain.QueryResult{
		Content: "Based on your financial data analysis, here are the revenue insights:\n\n" +
			"Total revenue for FY 2024: ₹45.2 crores (up 18.5% from previous year)\n" +
			"Q4 2024 showed the strongest performance with ₹13.8 crores in revenue.\n\n" +
			"Key highlights:\n" +
			"• Product sales contributed 68% of total revenue\n" +
			"• Service revenue grew by 24% year-over-year\n" +
			"• International markets now represent 32% of total revenue",
		Charts: []domain.Chart{{
			Type:  domain.ChartBar,
			Title: "Quarterly Revenue Breakdown (₹ Crores)",
			Data: []domain.Point{
				{Name: "Q1 2024", Value: 9.8},
				{Name: "Q2 2024", Value: 11.2},
				{Name: "Q3 2024", Value: 10.4},
				{Name: "Q4 2024", Value: 13.8},
			},
		}},
		Suggestions: []string{
			"What drove the Q4 revenue spike?",
			"Compare with industry benchmarks",
			"Show revenue by product line",
		},
	}
}

func growthAnswer() domain.QueryResult {
	return domain.QueryResult{
		Content: "Growth Analysis Summary:\n\n" +
			"Year-over-Year Growth Rate: 18.5%\n" +
			"Compound Annual Growth Rate (3-year): 15.2%\n\n" +
			"Growth drivers:\n" +
			"• New product launches contributed 6.2% growth\n" +
			"• Market expansion added 4.8% growth\n" +
			"• Operational efficiency improvements: 3.1%\n" +
			"• Price optimization: 4.4%",
		Charts: []domain.Chart{{
			Type:  domain.ChartLine,
			Title: "Revenue Growth Trend (₹ Crores)",
			Data: []domain.Point{
				{Name: "2022", Value: 32.1},
				{Name: "2023", Value: 38.2},
				{Name: "2024", Value: 45.2},
			},
		}},
		Suggestions: []string{
			"What are the growth projections?",
			"Analyze growth by segment",
			"Compare with competitors",
		},
	}
}

func ratioAnswer() domain.QueryResult {
	return domain.QueryResult{
		Content: "Key Financial Ratios Analysis:\n\n" +
			"Liquidity Ratios:\n" +
			"• Current Ratio: 2.34 (Healthy)\n" +
			"• Quick Ratio: 1.87 (Good)\n" +
			"• Cash Ratio: 0.92 (Adequate)\n\n" +
			"Profitability Ratios:\n" +
			"• Gross Profit Margin: 42.3%\n" +
			"• Net Profit Margin: 18.7%\n" +
			"• Return on Equity (ROE): 22.4%\n" +
			"• Return on Assets (ROA): 15.8%",
		Tables: []domain.Table{{
			Title:   "Financial Ratios Comparison",
			Headers: []string{"Ratio", "Current Year", "Previous Year", "Industry Avg"},
			Rows: [][]string{
				{"Current Ratio", "2.34", "2.18", "2.10"},
				{"ROE (%)", "22.4", "19.8", "18.5"},
				{"Debt-to-Equity", "0.45", "0.52", "0.60"},
				{"Asset Turnover", "1.24", "1.18", "1.15"},
			},
		}},
		Suggestions: []string{
			"What improved our ratios?",
			"Compare with sector leaders",
			"Show ratio trends over 5 years",
		},
	}
}

func assetAnswer() domain.QueryResult {
	return domain.QueryResult{
		Content: "Assets vs Liabilities Analysis:\n\n" +
			"Total Assets: ₹78.5 crores\n" +
			"Total Liabilities: ₹35.2 crores\n" +
			"Shareholders' Equity: ₹43.3 crores\n\n" +
			"Asset Composition:\n" +
			"• Current Assets: 45% (₹35.3 crores)\n" +
			"• Fixed Assets: 42% (₹33.0 crores)\n" +
			"• Investments: 13% (₹10.2 crores)\n\n" +
			"Liability Structure:\n" +
			"• Current Liabilities: 58% (₹20.4 crores)\n" +
			"• Long-term Debt: 32% (₹11.3 crores)\n" +
			"• Other Liabilities: 10% (₹3.5 crores)",
		Charts: []domain.Chart{{
			Type:  domain.ChartPie,
			Title: "Asset Distribution",
			Data: []domain.Point{
				{Name: "Current Assets", Value: 35.3},
				{Name: "Fixed Assets", Value: 33.0},
				{Name: "Investments", Value: 10.2},
			},
		}},
		Suggestions: []string{
			"Analyze asset utilization",
			"Show liability maturity profile",
			"Compare asset quality metrics",
		},
	}
}

func clarifyAnswer(query string) domain.QueryResult {
	return domain.QueryResult{
		Content: fmt.Sprintf("I've analyzed your query about %q.\n\n", query) +
			"Based on the available financial data, I can provide insights on various aspects of your company's performance. " +
			"However, I need more specific information to give you the most relevant analysis.\n\n" +
			"Could you please specify what particular aspect you'd like me to focus on? For example:\n" +
			"• Specific time periods\n" +
			"• Particular financial metrics\n" +
			"• Comparison criteria\n" +
			"• Business segments of interest",
		Suggestions: []string{
			"Show me revenue trends",
			"Calculate profitability ratios",
			"Compare quarterly performance",
			"Analyze cash flow patterns",
		},
	}
}

var _ domain.Responder = (*Responder)(nil)
