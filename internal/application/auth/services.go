package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

var ErrMissingCredentials = errors.New("email and password are required")

// InputError reports the first invalid sign-up field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Message }

// Service is the session surface the app talks to.
type Service struct {
	Provider identity.Provider
	Log      *zap.Logger
	validate *validator.Validate
}

func NewService(p identity.Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Provider: p, Log: logger, validate: validator.New()}
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	sess, err := s.Provider.SignIn(ctx, email, password)
	if err != nil {
		s.Log.Info("sign-in rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return sess, nil
}

func (s *Service) SignUp(ctx context.Context, in identity.SignUpInput) (*identity.Session, error) {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, inputError(verrs[0])
		}
		return nil, err
	}
	return s.Provider.SignUp(ctx, in)
}

func (s *Service) SignOut(ctx context.Context, p *identity.Principal) error {
	return s.Provider.SignOut(ctx, p)
}

// Authenticate resolves a bearer token to its principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*identity.Principal, error) {
	if token == "" {
		return nil, identity.ErrUnauthenticated
	}
	return s.Provider.Verify(ctx, token)
}

// Me returns the caller's profile with the role defaulted.
func (s *Service) Me(ctx context.Context, p *identity.Principal) (*identity.UserProfile, error) {
	if p == nil {
		return nil, identity.ErrUnauthenticated
	}
	prof, err := s.Provider.Profile(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	prof.Role = prof.EffectiveRole()
	return prof, nil
}

func inputError(fe validator.FieldError) *InputError {
	field := strings.ToLower(fe.Field())
	switch fe.Field() + "." + fe.Tag() {
	case "Email.required":
		return &InputError{Field: "email", Message: "Email is required"}
	case "Email.email":
		return &InputError{Field: "email", Message: "Please enter a valid email address"}
	case "Password.required":
		return &InputError{Field: "password", Message: "Password is required"}
	case "Password.min":
		return &InputError{Field: "password", Message: "Password must be at least 6 characters"}
	case "FullName.required":
		return &InputError{Field: "full_name", Message: "Full name is required"}
	case "Role.oneof":
		return &InputError{Field: "role", Message: "Please select a valid role"}
	}
	return &InputError{Field: field, Message: fe.Error()}
}
