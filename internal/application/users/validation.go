package users

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/users"
)

// MinPasswordLength applies to passwords set from user management.
const MinPasswordLength = 8

// Form is the create/edit user modal.
type Form struct {
	Name            string        `json:"name" validate:"required"`
	Email           string        `json:"email" validate:"required,email"`
	Role            identity.Role `json:"role" validate:"required,oneof=analyst ceo group_admin"`
	Companies       []string      `json:"companies" validate:"min=1"`
	Status          users.Status  `json:"status" validate:"omitempty,oneof=active inactive pending"`
	Password        string        `json:"password"`
	ConfirmPassword string        `json:"confirmPassword"`
}

// ValidationError carries one message per invalid field, keyed by JSON name.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "invalid user: " + strings.Join(parts, "; ")
}

var messages = map[string]string{
	"Name.required":  "Name is required",
	"Email.required": "Email is required",
	"Email.email":    "Please enter a valid email address",
	"Role.required":  "Role is required",
	"Role.oneof":     "Please select a valid role",
	"Companies.min":  "At least one company must be assigned",
	"Status.oneof":   "Please select a valid status",
}

var jsonNames = map[string]string{
	"Name":      "name",
	"Email":     "email",
	"Role":      "role",
	"Companies": "companies",
	"Status":    "status",
}

// check validates f. Passwords are required when creating and optional when
// editing, but a given password must be long enough and confirmed.
func check(v *validator.Validate, f Form, creating bool) error {
	fields := map[string]string{}

	if err := v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			name := jsonNames[fe.Field()]
			if _, seen := fields[name]; seen {
				continue
			}
			msg, ok := messages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = fe.Error()
			}
			fields[name] = msg
		}
	}

	switch {
	case creating && f.Password == "":
		fields["password"] = "Password is required"
	case f.Password != "" && len(f.Password) < MinPasswordLength:
		fields["password"] = "Password must be at least 8 characters"
	}
	if f.Password != f.ConfirmPassword {
		fields["confirmPassword"] = "Passwords do not match"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
