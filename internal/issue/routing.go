package issue

import (
	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
)

type Route struct {
	Category   string `json:"category"`
	Department string `json:"department"`
}

var routes = []Route{
	{Category: "Roads & Transportation", Department: "Public Works Department"},
	{Category: "Water & Sanitation", Department: "Water & Sanitation"},
	{Category: "Waste Management", Department: "Sanitation Department"},
	{Category: "Public Utilities", Department: "Electricity Department"},
	{Category: "Environmental Issues", Department: "Environment Department"},
	{Category: "Public Infrastructure", Department: "Public Works Department"},
	{Category: "Public Safety", Department: "Police Department"},
	{Category: "Health & Hygiene", Department: "Health Department"},
	{Category: "Traffic & Parking", Department: "Traffic Police Department"},
	{Category: "Noise Pollution", Department: "Environment Department"},
}

var departmentByCategory = func() map[string]string {
	m := make(map[string]string, len(routes))
	for _, r := range routes {
		m[r.Category] = r.Department
	}
	return m
}()

func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

func Categories() []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Category)
	}
	return out
}

// Departments lists each responsible department once, in table order.
func Departments() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range routes {
		if !seen[r.Department] {
			seen[r.Department] = true
			out = append(out, r.Department)
		}
	}
	return out
}

func DepartmentFor(category string) (string, bool) {
	d, ok := departmentByCategory[category]
	return d, ok
}

// CategoriesFor returns the categories routed to department.
func CategoriesFor(department string) []string {
	var out []string
	for _, r := range routes {
		if r.Department == department {
			out = append(out, r.Category)
		}
	}
	return out
}

// VisibleTo reports whether the caller may act on the issue as staff. A
// superadmin sees everything. An admin sees issues assigned to them and
// unassigned issues whose category routes to their department.
func VisibleTo(issue *Issue, identity *internal.Identity) bool {
	if identity == nil {
		return false
	}
	switch user.Role(identity.Role) {
	case user.RoleSuperAdmin:
		return true
	case user.RoleAdmin:
		if issue.AssignedAdmin != nil {
			return *issue.AssignedAdmin == identity.UserID
		}
		dept, ok := DepartmentFor(issue.Category)
		return ok && identity.Department != "" && dept == identity.Department
	default:
		return false
	}
}
