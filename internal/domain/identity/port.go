package identity

import "context"

// Provider is the identity provider the session service talks to.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, in SignUpInput) (*Session, error)
	SignOut(ctx context.Context, p *Principal) error
	Verify(ctx context.Context, token string) (*Principal, error)
	Profile(ctx context.Context, userID string) (*UserProfile, error)
}

// Repository port for profiles and password hashes.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Credentials, error)
	Create(ctx context.Context, c *Credentials) error
	Get(ctx context.Context, id string) (*UserProfile, error)
	TouchLogin(ctx context.Context, id string) error
}
