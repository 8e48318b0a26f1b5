package users

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
)

var ErrInvalidStatus = errors.New("bulk status must be active or inactive")

// Service implements the user-management use cases.
type Service struct {
	Repo  users.Repository
	Clock application.Clock
	Log   *zap.Logger
	// HashCost is the bcrypt cost for new passwords.
	HashCost int

	validate *validator.Validate
}

func NewService(repo users.Repository, clock application.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Repo:     repo,
		Clock:    clock,
		Log:      logger,
		HashCost: bcrypt.DefaultCost,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List returns the filtered and sorted user table.
func (s *Service) List(ctx context.Context, f users.Filter, sort users.Sort) ([]*users.ManagedUser, error) {
	all, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return users.Apply(all, f, sort), nil
}

func (s *Service) Stats(ctx context.Context) (users.Stats, error) {
	all, err := s.Repo.List(ctx)
	if err != nil {
		return users.Stats{}, err
	}
	return users.ComputeStats(all, s.Clock.Now()), nil
}

func (s *Service) Get(ctx context.Context, id string) (*users.ManagedUser, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, f Form) (*users.ManagedUser, error) {
	f = normalize(f)
	if err := check(s.validate, f, true); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.HashCost)
	if err != nil {
		return nil, err
	}
	u := &users.ManagedUser{
		Name:      f.Name,
		Email:     f.Email,
		Role:      f.Role,
		Companies: f.Companies,
		Status:    f.Status,
	}
	if u.Status == "" {
		u.Status = users.StatusActive
	}
	if err := s.Repo.Create(ctx, u, string(hash)); err != nil {
		return nil, err
	}
	s.Log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Update edits profile fields. A blank password keeps the current one.
func (s *Service) Update(ctx context.Context, id string, f Form) (*users.ManagedUser, error) {
	f = normalize(f)
	if err := check(s.validate, f, false); err != nil {
		return nil, err
	}
	u, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = f.Name
	u.Email = f.Email
	u.Role = f.Role
	u.Companies = f.Companies
	if f.Status != "" {
		u.Status = f.Status
	}

	var hash string
	if f.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.HashCost)
		if err != nil {
			return nil, err
		}
		hash = string(b)
	}
	if err := s.Repo.Update(ctx, u, hash); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Log.Info("user deleted", zap.String("user_id", id))
	return nil
}

// ToggleStatus flips active users to inactive and everyone else to active.
func (s *Service) ToggleStatus(ctx context.Context, id string) (*users.ManagedUser, error) {
	u, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := users.StatusActive
	if u.Status == users.StatusActive {
		next = users.StatusInactive
	}
	if _, err := s.Repo.SetStatus(ctx, next, id); err != nil {
		return nil, err
	}
	u.Status = next
	return u, nil
}

// BulkSetStatus activates or deactivates the selected users.
func (s *Service) BulkSetStatus(ctx context.Context, status users.Status, ids ...string) (int64, error) {
	if status != users.StatusActive && status != users.StatusInactive {
		return 0, ErrInvalidStatus
	}
	return s.Repo.SetStatus(ctx, status, ids...)
}

// ResetPassword only checks the user exists and records the request; no
// mail is sent.
func (s *Service) ResetPassword(ctx context.Context, id string) error {
	u, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Log.Info("password reset requested", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}

func normalize(f Form) Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	companies := make([]string, 0, len(f.Companies))
	for _, c := range f.Companies {
		if c = strings.TrimSpace(c); c != "" {
			companies = append(companies, c)
		}
	}
	f.Companies = companies
	return f
}
