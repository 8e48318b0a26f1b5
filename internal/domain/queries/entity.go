package queries

import (
	"encoding/json"
	"time"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

type ID string

// DefaultHistoryLimit is the page size for query history and the chat ring buffer.
const DefaultHistoryLimit = 20

// Entry is one persisted question/answer exchange. Entries are append-only.
type Entry struct {
	ID           ID              `json:"id"`
	UserID       string          `json:"user_id"`
	CompanyID    company.ID      `json:"company_id"`
	QueryText    string          `json:"query_text"`
	ResponseText string          `json:"response_text"`
	ChartData    json.RawMessage `json:"chart_data,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`

	Company *company.Company `json:"companies,omitempty"`
}
