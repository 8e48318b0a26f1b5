package dashboard

import (
	"fmt"
	"time"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
	"github.com/bryanwahyu/balancesheet-gpt/internal/domain/identity"
)

// ChangeType enum
type ChangeType string

const (
	ChangePositive ChangeType = "positive"
	ChangeNegative ChangeType = "negative"
)

type Metric struct {
	Title      string     `json:"title"`
	Value      string     `json:"value"`
	Change     string     `json:"change"`
	ChangeType ChangeType `json:"changeType"`
	Icon       string     `json:"icon"`
	Trend      bool       `json:"trend,omitempty"`
}

type NavItem struct {
	Label string          `json:"label"`
	Path  string          `json:"path"`
	Icon  string          `json:"icon"`
	Roles []identity.Role `json:"roles"`
}

// Allows reports whether role may see the item.
func (n NavItem) Allows(role identity.Role) bool {
	for _, r := range n.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// View is everything the dashboard page renders for one user.
type View struct {
	Greeting   string        `json:"greeting"`
	Role       identity.Role `json:"role"`
	Metrics    []Metric      `json:"metrics"`
	Navigation []NavItem     `json:"navigation"`
	Time       time.Time     `json:"time"`
}

var baseMetrics = []Metric{
	{Title: "Total Revenue", Value: "₹92.5L", Change: "+12.5%", ChangeType: ChangePositive, Icon: "TrendingUp", Trend: true},
	{Title: "Net Profit", Value: "₹31.2L", Change: "+8.3%", ChangeType: ChangePositive, Icon: "DollarSign", Trend: true},
	{Title: "Total Assets", Value: "₹132.8L", Change: "+15.2%", ChangeType: ChangePositive, Icon: "Building", Trend: true},
	{Title: "Current Ratio", Value: "2.45", Change: "-0.12", ChangeType: ChangeNegative, Icon: "Calculator"},
}

var roleMetrics = map[identity.Role][]Metric{
	identity.RoleCEO: {
		{Title: "ROI", Value: "23.5%", Change: "+2.1%", ChangeType: ChangePositive, Icon: "Target"},
		{Title: "Market Share", Value: "18.2%", Change: "+1.5%", ChangeType: ChangePositive, Icon: "PieChart"},
	},
	identity.RoleGroupAdmin: {
		{Title: "Companies", Value: "12", Change: "+2", ChangeType: ChangePositive, Icon: "Building2"},
		{Title: "Total Portfolio", Value: "₹1,250L", Change: "+18.7%", ChangeType: ChangePositive, Icon: "Briefcase"},
	},
}

var everyone = []identity.Role{identity.RoleAnalyst, identity.RoleCEO, identity.RoleAdmin}

// navigation is gated on "admin", which no profile holds; group_admin users
// see no items.
var navigation = []NavItem{
	{Label: "Dashboard", Path: "/dashboard", Icon: "LayoutDashboard", Roles: everyone},
	{Label: "Data Management", Path: "/pdf-upload-management", Icon: "FileText", Roles: everyone},
	{Label: "Analysis", Path: "/financial-data-analysis", Icon: "TrendingUp", Roles: everyone},
	{Label: "AI Assistant", Path: "/ai-query-interface", Icon: "Bot", Roles: everyone},
	{Label: "User Management", Path: "/user-management", Icon: "Users", Roles: []identity.Role{identity.RoleAdmin}},
}

// Metrics returns the cards for role: four base cards plus role extras.
func Metrics(role identity.Role) []Metric {
	out := append([]Metric(nil), baseMetrics...)
	return append(out, roleMetrics[role]...)
}

// Navigation returns the sidebar items role may see.
func Navigation(role identity.Role) []NavItem {
	out := []NavItem{}
	for _, n := range navigation {
		if n.Allows(role) {
			out = append(out, n)
		}
	}
	return out
}

// Salutation picks the greeting for the hour of t.
func Salutation(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 17:
		return "Good evening"
	case h >= 12:
		return "Good afternoon"
	}
	return "Good morning"
}

// Service builds dashboard views.
type Service struct {
	Clock application.Clock
	// Location is the time zone used for the greeting.
	Location *time.Location
}

func NewService(clock application.Clock, loc *time.Location) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{Clock: clock, Location: loc}
}

func (s *Service) View(p *identity.UserProfile) View {
	now := s.Clock.Now().In(s.Location)
	role := p.EffectiveRole()
	name := ""
	if p != nil {
		name = p.FullName
	}
	return View{
		Greeting:   fmt.Sprintf("%s, %s - %s", Salutation(now), name, role.Title()),
		Role:       role,
		Metrics:    Metrics(role),
		Navigation: Navigation(role),
		Time:       now,
	}
}
