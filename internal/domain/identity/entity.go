package identity

import (
	"errors"
	"time"
)

// Role is the one role vocabulary shared by profiles, navigation and dashboards.
type Role string

const (
	RoleAnalyst    Role = "analyst"
	RoleCEO        Role = "ceo"
	RoleGroupAdmin Role = "group_admin"

	// RoleAdmin only appears in navigation rules. No profile can hold it, so
	// items gated on it are unreachable for group_admin users.
	RoleAdmin Role = "admin"
)

// DefaultRole is assumed when a profile has no role.
const DefaultRole = RoleAnalyst

// ProfileRoles are the roles a user profile may hold.
var ProfileRoles = []Role{RoleAnalyst, RoleCEO, RoleGroupAdmin}

// Assignable reports whether r may be stored on a profile.
func (r Role) Assignable() bool {
	for _, p := range ProfileRoles {
		if r == p {
			return true
		}
	}
	return false
}

// Title is the long display name used in greetings.
func (r Role) Title() string {
	switch r {
	case RoleAnalyst:
		return "Financial Analyst"
	case RoleCEO:
		return "Chief Executive Officer"
	case RoleGroupAdmin:
		return "Group Administrator"
	}
	return ""
}

// Label is the short display name used in tables and forms.
func (r Role) Label() string {
	switch r {
	case RoleAnalyst:
		return "Analyst"
	case RoleCEO:
		return "CEO"
	case RoleGroupAdmin:
		return "Group Admin"
	case RoleAdmin:
		return "Admin"
	}
	return string(r)
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrProfileNotFound    = errors.New("profile not found")
)

// UserProfile mirrors the user_profiles row.
type UserProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// EffectiveRole falls back to DefaultRole for profiles without a role.
func (p *UserProfile) EffectiveRole() Role {
	if p == nil || p.Role == "" {
		return DefaultRole
	}
	return p.Role
}

// Credentials is a profile plus its password hash, never serialized.
type Credentials struct {
	Profile      UserProfile
	PasswordHash string
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Email     string
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is returned from sign-in and sign-up.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *UserProfile `json:"user"`
}

// SignUpInput carries the sign-up form. Group administrators are created
// through user management only.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	Role     Role   `json:"role" validate:"omitempty,oneof=analyst ceo"`
}
