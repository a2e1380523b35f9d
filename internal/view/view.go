// Package view selects the dashboard projection for the caller's role.
package view

import (
	"context"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/auth"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/frahmantamala/civic-report/internal/stats"
	userService "github.com/frahmantamala/civic-report/internal/user"
)

type Kind string

const (
	CitizenView    Kind = "citizen"
	AdminView      Kind = "admin"
	SuperAdminView Kind = "superadmin"
)

// ViewFor maps a role to its projection. Unknown roles get no view.
func ViewFor(role user.Role) (Kind, error) {
	switch role {
	case user.RoleCitizen:
		return CitizenView, nil
	case user.RoleAdmin:
		return AdminView, nil
	case user.RoleSuperAdmin:
		return SuperAdminView, nil
	default:
		return "", internal.ErrRoleNotPermitted
	}
}

type ServiceAPI interface {
	Dashboard(ctx context.Context, identity *internal.Identity, filter issue.ListFilter) (*Dashboard, error)
}

type IssueReader interface {
	List(ctx context.Context, filter issue.ListFilter) ([]*issue.Issue, error)
	ListByReporter(ctx context.Context, identity *internal.Identity) ([]*issue.Issue, error)
	AdminIssues(ctx context.Context, identity *internal.Identity) ([]*issue.Issue, error)
}

type ProfileReader interface {
	GetMe(ctx context.Context, userID int64) (*userService.Profile, error)
	ListAdmins(ctx context.Context) ([]userService.AdminResponse, error)
}

type StatsReader interface {
	Dashboard(ctx context.Context, identity *internal.Identity) (*stats.DashboardStats, error)
}

// Dashboard is the body of GET /dashboard. Exactly one of the role sections is set.
type Dashboard struct {
	View         Kind                  `json:"view"`
	Capabilities auth.CapabilitySet    `json:"capabilities"`
	Profile      *userService.Profile  `json:"profile"`
	Stats        *stats.DashboardStats `json:"stats"`
	Categories   []issue.Route         `json:"categories"`

	Citizen    *CitizenSection    `json:"citizen,omitempty"`
	Admin      *AdminSection      `json:"admin,omitempty"`
	SuperAdmin *SuperAdminSection `json:"superadmin,omitempty"`
}

type CitizenSection struct {
	Issues        issue.IssuesResponse `json:"issues"`
	MyReports     issue.IssuesResponse `json:"myReports"`
	VotedIssueIDs []int64              `json:"votedIssueIds"`
	Points        int64                `json:"points"`
}

type AdminSection struct {
	Department string               `json:"department"`
	MyIssues   issue.IssuesResponse `json:"myIssues"`
}

type SuperAdminSection struct {
	Issues issue.IssuesResponse        `json:"issues"`
	Admins []userService.AdminResponse `json:"admins"`
}
