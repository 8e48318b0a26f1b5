package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

func ts(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func tp(s string) *time.Time {
	t := ts(s)
	return &t
}

func sample() []*ManagedUser {
	return []*ManagedUser{
		{ID: "1", Name: "Rajesh Kumar", Email: "rajesh@acme.in", Role: identity.RoleCEO, Status: StatusActive,
			Companies: []string{"Acme Industries"}, LastLogin: tp("2025-06-01T08:00:00Z"), CreatedAt: ts("2024-01-10T00:00:00Z")},
		{ID: "2", Name: "Priya Sharma", Email: "priya@globex.in", Role: identity.RoleAnalyst, Status: StatusPending,
			Companies: []string{"Globex Ltd", "Acme Industries"}, CreatedAt: ts("2024-03-01T00:00:00Z")},
		{ID: "3", Name: "Amit Patel", Email: "amit@initech.in", Role: identity.RoleGroupAdmin, Status: StatusInactive,
			Companies: []string{"Initech"}, LastLogin: tp("2025-05-20T08:00:00Z"), CreatedAt: ts("2023-11-05T00:00:00Z")},
	}
}

func ids(list []*ManagedUser) []string {
	out := make([]string, len(list))
	for i, u := range list {
		out[i] = u.ID
	}
	return out
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"no filters", Filter{}, []string{"1", "2", "3"}},
		{"search name case-insensitive", Filter{Search: "PRIYA"}, []string{"2"}},
		{"search email", Filter{Search: "initech.in"}, []string{"3"}},
		{"role", Filter{Role: identity.RoleCEO}, []string{"1"}},
		{"status", Filter{Status: StatusPending}, []string{"2"}},
		{"company substring", Filter{Company: "acme"}, []string{"1", "2"}},
		{"combined", Filter{Company: "acme", Status: StatusActive}, []string{"1"}},
		{"nothing", Filter{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sample(), tt.f, Sort{})))
		})
	}
}

func TestApplySorts(t *testing.T) {
	list := sample()
	assert.Equal(t, []string{"3", "2", "1"}, ids(Apply(list, Filter{}, Sort{Key: SortName, Direction: Asc})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(Apply(list, Filter{}, Sort{Key: SortName, Direction: Desc})))
	assert.Equal(t, []string{"3", "1", "2"}, ids(Apply(list, Filter{}, Sort{Key: SortCreatedAt, Direction: Asc})))
	// users without a login sort first ascending
	assert.Equal(t, []string{"2", "3", "1"}, ids(Apply(list, Filter{}, Sort{Key: SortLastLogin, Direction: Asc})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(list), "input untouched")
}

func TestSortToggle(t *testing.T) {
	s := Sort{}.Toggle(SortName)
	assert.Equal(t, Sort{Key: SortName, Direction: Asc}, s)
	s = s.Toggle(SortName)
	assert.Equal(t, Sort{Key: SortName, Direction: Desc}, s)
	s = s.Toggle(SortName)
	assert.Equal(t, Sort{Key: SortName, Direction: Asc}, s)
	assert.Equal(t, Sort{Key: SortEmail, Direction: Asc}, s.Toggle(SortEmail))
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats(sample(), ts("2025-06-01T20:00:00Z"))
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Inactive)
	assert.Equal(t, 1, st.RecentLogins)
	assert.Equal(t, map[identity.Role]int{identity.RoleCEO: 1, identity.RoleAnalyst: 1, identity.RoleGroupAdmin: 1}, st.RoleDistribution)

	empty := ComputeStats(nil, time.Now())
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.RoleDistribution)
}
