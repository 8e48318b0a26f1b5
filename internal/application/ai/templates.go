package ai

import "strings"

type TemplateCategory struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Icon      string   `json:"icon"`
	Templates []string `json:"templates"`
}

var templateCategories = []TemplateCategory{
	{ID: "revenue", Title: "Revenue Analysis", Icon: "TrendingUp", Templates: []string{
		"What was the total revenue for the last fiscal year?",
		"Show me revenue growth trends over the past 3 years",
		"Compare revenue by quarters for 2024",
		"Which product line generated the highest revenue?",
	}},
	{ID: "growth", Title: "Growth Trends", Icon: "BarChart3", Templates: []string{
		"Calculate year-over-year growth rate",
		"Show me the fastest growing business segments",
		"What are the key growth drivers this year?",
		"Compare our growth with industry benchmarks",
	}},
	{ID: "comparative", Title: "Comparative Metrics", Icon: "GitCompare", Templates: []string{
		"Compare assets vs liabilities over time",
		"Show debt-to-equity ratio trends",
		"Compare current ratio with previous years",
		"Analyze working capital changes",
	}},
	{ID: "profitability", Title: "Profitability", Icon: "DollarSign", Templates: []string{
		"What is our net profit margin trend?",
		"Show EBITDA performance over quarters",
		"Calculate return on equity (ROE)",
		"Analyze cost structure changes",
	}},
}

var autocomplete = []string{
	"What was the total revenue for the last fiscal year?",
	"Show me revenue growth trends over the past 3 years",
	"Compare revenue by quarters for 2024",
	"Calculate year-over-year growth rate",
	"Show me the fastest growing business segments",
	"Compare assets vs liabilities over time",
	"What is our net profit margin trend?",
	"Show EBITDA performance over quarters",
	"Calculate return on equity (ROE)",
	"Analyze cost structure changes",
}

const (
	minSuggestInput = 3
	maxSuggestions  = 5
)

// Templates returns the canned query templates grouped by category.
func Templates() []TemplateCategory {
	out := make([]TemplateCategory, len(templateCategories))
	for i, c := range templateCategories {
		c.Templates = append([]string(nil), c.Templates...)
		out[i] = c
	}
	return out
}

// Suggest returns up to five autocomplete entries containing input. Inputs
// shorter than three characters get nothing.
func Suggest(input string) []string {
	out := []string{}
	if len([]rune(input)) < minSuggestInput {
		return out
	}
	q := strings.ToLower(input)
	for _, s := range autocomplete {
		if strings.Contains(strings.ToLower(s), q) {
			out = append(out, s)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}
