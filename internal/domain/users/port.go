package users

import "context"

// Repository port
type Repository interface {
	List(ctx context.Context) ([]*ManagedUser, error)
	Get(ctx context.Context, id string) (*ManagedUser, error)
	Create(ctx context.Context, u *ManagedUser, passwordHash string) error
	Update(ctx context.Context, u *ManagedUser, passwordHash string) error
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, status Status, ids ...string) (int64, error)
}
