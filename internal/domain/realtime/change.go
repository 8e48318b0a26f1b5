package realtime

import (
	"encoding/json"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

// Table is a realtime-enabled table.
type Table string

const (
	TableDocuments     Table = "documents"
	TableBalanceSheets Table = "balance_sheets"
)

// EventType enum
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Change is one row-level change notification.
type Change struct {
	Table     Table           `json:"table"`
	Type      EventType       `json:"eventType"`
	CompanyID company.ID      `json:"company_id"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

// Topic scopes a subscription to one table and one company.
type Topic struct {
	Table     Table
	CompanyID company.ID
}

func (c Change) Topic() Topic { return Topic{Table: c.Table, CompanyID: c.CompanyID} }

func (t Topic) String() string { return string(t.Table) + ":company_id=eq." + string(t.CompanyID) }

// Handler receives changes. It runs on the publisher's goroutine.
type Handler func(Change)

// Unsubscribe stops delivery to one subscription. Calling it twice is a no-op.
type Unsubscribe func()
