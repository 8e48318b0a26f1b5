package documents

import (
	"context"
	"io"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/company"
)

// Repository port (persistence)
type Repository interface {
	Insert(ctx context.Context, d *Document) (*Document, error)
	ListByCompany(ctx context.Context, companyID company.ID) ([]*Document, error)
	Get(ctx context.Context, id ID) (*Document, error)
	UpdateStatus(ctx context.Context, id ID, status Status, extractedMetrics int) error
	Delete(ctx context.Context, ids ...ID) (int64, error)
}

// ObjectStore port (document bytes)
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Processor extracts financial data from an uploaded document.
type Processor interface {
	Process(ctx context.Context, d *Document) (ExtractionResult, error)
}
