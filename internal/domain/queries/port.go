package queries

import "context"

// Repository port
type Repository interface {
	Insert(ctx context.Context, e *Entry) (*Entry, error)
	History(ctx context.Context, userID string, limit int) ([]*Entry, error)
}
