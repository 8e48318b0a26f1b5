package company

import "context"

// Repository port
type Repository interface {
	List(ctx context.Context) ([]*Company, error)
}
