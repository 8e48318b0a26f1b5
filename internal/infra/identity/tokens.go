package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	domain "github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the access-token claims. Subject carries the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// Tokens signs and parses HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  application.Clock
}

func NewTokens(secret string, ttl time.Duration, issuer string, clock application.Clock) *Tokens {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, clock: clock}
}

// Issue signs a token for p with a fresh jti.
func (t *Tokens) Issue(p *domain.UserProfile) (string, *domain.Principal, error) {
	now := t.clock.Now()
	principal := &domain.Principal{
		UserID:    p.ID,
		Email:     p.Email,
		Role:      p.EffectiveRole(),
		TokenID:   uuid.NewString(),
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(t.ttl).Truncate(time.Second),
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        principal.TokenID,
			Issuer:    t.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(principal.IssuedAt),
			NotBefore: jwt.NewNumericDate(principal.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(principal.ExpiresAt),
		},
		Email: principal.Email,
		Role:  principal.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, principal, nil
}

// Parse validates signature, issuer and expiry.
func (t *Tokens) Parse(token string) (*domain.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Principal{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
