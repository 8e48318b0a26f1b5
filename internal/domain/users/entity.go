package users

import (
	"errors"
	"time"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

// Status enum
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

var ErrNotFound = errors.New("user not found")

// ManagedUser is a user_profiles row as seen from the user-management page.
type ManagedUser struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Role         identity.Role `json:"role"`
	Companies    []string      `json:"companies"`
	Status       Status        `json:"status"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	LoginCount   int           `json:"loginCount"`
	QueriesCount int           `json:"queriesCount"`
}

// Stats backs the summary cards above the user table.
type Stats struct {
	Total            int                   `json:"total"`
	Active           int                   `json:"active"`
	Pending          int                   `json:"pending"`
	Inactive         int                   `json:"inactive"`
	RoleDistribution map[identity.Role]int `json:"roleDistribution"`
	RecentLogins     int                   `json:"recentLogins"`
}

// ComputeStats counts users by status and role. A login counts as recent when
// it happened within 24 hours of now.
func ComputeStats(list []*ManagedUser, now time.Time) Stats {
	st := Stats{Total: len(list), RoleDistribution: map[identity.Role]int{}}
	for _, u := range list {
		switch u.Status {
		case StatusActive:
			st.Active++
		case StatusPending:
			st.Pending++
		case StatusInactive:
			st.Inactive++
		}
		st.RoleDistribution[u.Role]++
		if u.LastLogin != nil && now.Sub(*u.LastLogin) <= 24*time.Hour {
			st.RecentLogins++
		}
	}
	return st
}
