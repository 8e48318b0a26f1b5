package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/balancesheet-gpt/internal/domain/ai"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are BalanceSheet GPT, a financial analyst assistant for Indian listed companies. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Amounts are in Indian Rupees; state the unit (crores or lakhs) in titles.
- "confidence" is a number between 0 and 1.
- "charts" may be empty. Each chart has type bar, line or pie and a data array of {"name","value"} points.
- "tables" may be empty. Every row must have as many cells as "headers".
- "suggestions" holds two to four short follow-up questions.
- If the question cannot be answered from financial statements, ask for clarification in "content".

Schema (example with empty values):
{
  "content": "<string>",
  "confidence": 0.0,
  "charts": [{"type": "bar", "title": "<string>", "data": [{"name": "<string>", "value": 0}]}],
  "tables": [{"title": "<string>", "headers": ["<string>"], "rows": [["<string>"]]}],
  "suggestions": ["<string>"]
}`
}

// GetUserPrompt wraps the user's question.
func GetUserPrompt(question string) string {
	return fmt.Sprintf("Answer this question about our financial data and respond with the JSON per schema. Question: %s", strings.TrimSpace(question))
}

// ParseResult decodes a model reply into a QueryResult, dropping malformed
// charts/tables and clamping confidence.
func ParseResult(raw string) (domain.QueryResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var res domain.QueryResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return domain.QueryResult{}, fmt.Errorf("invalid model output: %w", err)
	}
	if strings.TrimSpace(res.Content) == "" {
		return domain.QueryResult{}, fmt.Errorf("invalid model output: empty content")
	}

	switch {
	case res.Confidence < 0:
		res.Confidence = 0
	case res.Confidence > 1:
		res.Confidence = 1
	}

	charts := res.Charts[:0]
	for _, c := range res.Charts {
		switch c.Type {
		case domain.ChartBar, domain.ChartLine, domain.ChartPie:
			if len(c.Data) > 0 {
				charts = append(charts, c)
			}
		}
	}
	res.Charts = charts

	tables := res.Tables[:0]
	for _, t := range res.Tables {
		ok := len(t.Headers) > 0
		for _, row := range t.Rows {
			if len(row) != len(t.Headers) {
				ok = false
				break
			}
		}
		if ok {
			tables = append(tables, t)
		}
	}
	res.Tables = tables
	return res, nil
}
