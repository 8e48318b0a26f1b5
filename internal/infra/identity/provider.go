package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	domain "github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

// Provider is the local identity provider: bcrypt passwords in user_profiles
// and stateless JWT sessions with revocation on sign-out.
type Provider struct {
	Repo     domain.Repository
	Tokens   *Tokens
	Revoked  Revoker
	Clock    application.Clock
	Log      *zap.Logger
	HashCost int
}

func NewProvider(repo domain.Repository, tokens *Tokens, revoked Revoker, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Repo:     repo,
		Tokens:   tokens,
		Revoked:  revoked,
		Clock:    application.SystemClock{},
		Log:      logger,
		HashCost: bcrypt.DefaultCost,
	}
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	creds, err := p.Repo.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := p.Repo.TouchLogin(ctx, creds.Profile.ID); err != nil {
		p.Log.Warn("failed to record login", zap.String("user_id", creds.Profile.ID), zap.Error(err))
	}
	return p.session(&creds.Profile)
}

func (p *Provider) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.HashCost)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.DefaultRole
	}
	creds := &domain.Credentials{
		Profile: domain.UserProfile{
			ID:       uuid.NewString(),
			Email:    strings.ToLower(strings.TrimSpace(in.Email)),
			FullName: strings.TrimSpace(in.FullName),
			Role:     role,
		},
		PasswordHash: string(hash),
	}
	if err := p.Repo.Create(ctx, creds); err != nil {
		return nil, err
	}
	p.Log.Info("user signed up", zap.String("user_id", creds.Profile.ID), zap.String("role", string(role)))
	return p.session(&creds.Profile)
}

// SignOut revokes the caller's token for the rest of its lifetime.
func (p *Provider) SignOut(ctx context.Context, pr *domain.Principal) error {
	if pr == nil {
		return domain.ErrUnauthenticated
	}
	return p.Revoked.Revoke(ctx, pr.TokenID, pr.ExpiresAt.Sub(p.Clock.Now()))
}

func (p *Provider) Verify(ctx context.Context, token string) (*domain.Principal, error) {
	pr, err := p.Tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	revoked, err := p.Revoked.IsRevoked(ctx, pr.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}
	return pr, nil
}

func (p *Provider) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return p.Repo.Get(ctx, userID)
}

func (p *Provider) session(profile *domain.UserProfile) (*domain.Session, error) {
	token, pr, err := p.Tokens.Issue(profile)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   pr.ExpiresAt,
		User:        profile,
	}, nil
}

var _ domain.Provider = (*Provider)(nil)
