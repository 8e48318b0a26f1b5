package users

import (
	"sort"
	"strings"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

// Filter holds the table filters. Empty fields match everything and all
// non-empty fields must match.
type Filter struct {
	Search  string        `json:"search"`
	Role    identity.Role `json:"role"`
	Status  Status        `json:"status"`
	Company string        `json:"company"`
}

// Match reports whether u passes every active filter.
func (f Filter) Match(u *ManagedUser) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			return false
		}
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.Company != "" {
		q := strings.ToLower(f.Company)
		found := false
		for _, c := range u.Companies {
			if strings.Contains(strings.ToLower(c), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SortKey names a sortable column.
type SortKey string

const (
	SortName      SortKey = "name"
	SortEmail     SortKey = "email"
	SortRole      SortKey = "role"
	SortStatus    SortKey = "status"
	SortLastLogin SortKey = "lastLogin"
	SortCreatedAt SortKey = "createdAt"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the current sort column and direction. A zero Key keeps input order.
type Sort struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// Toggle returns the sort after clicking column key: same column asc flips to
// desc, anything else starts at asc.
func (s Sort) Toggle(key SortKey) Sort {
	if s.Key == key && s.Direction == Asc {
		return Sort{Key: key, Direction: Desc}
	}
	return Sort{Key: key, Direction: Asc}
}

func (s Sort) less(a, b *ManagedUser) bool {
	var c int
	switch s.Key {
	case SortName:
		c = strings.Compare(a.Name, b.Name)
	case SortEmail:
		c = strings.Compare(a.Email, b.Email)
	case SortRole:
		c = strings.Compare(string(a.Role), string(b.Role))
	case SortStatus:
		c = strings.Compare(string(a.Status), string(b.Status))
	case SortLastLogin:
		c = compareTimes(a, b)
	case SortCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if s.Direction == Desc {
		return c > 0
	}
	return c < 0
}

func compareTimes(a, b *ManagedUser) int {
	switch {
	case a.LastLogin == nil && b.LastLogin == nil:
		return 0
	case a.LastLogin == nil:
		return -1
	case b.LastLogin == nil:
		return 1
	}
	return a.LastLogin.Compare(*b.LastLogin)
}

// Apply filters then sorts a copy of list. The input slice is not modified.
func Apply(list []*ManagedUser, f Filter, s Sort) []*ManagedUser {
	out := make([]*ManagedUser, 0, len(list))
	for _, u := range list {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	if s.Key != "" {
		sort.SliceStable(out, func(i, j int) bool { return s.less(out[i], out[j]) })
	}
	return out
}
