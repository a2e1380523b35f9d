package stats

import (
	"context"
	"time"

	"github.com/frahmantamala/civic-report/internal"
)

// Snapshot is one computation of the dashboard counters.
type Snapshot struct {
	TotalIssues      int64     `json:"totalIssues" db:"total_issues"`
	OpenIssues       int64     `json:"openIssues" db:"open_issues"`
	InProgressIssues int64     `json:"inProgressIssues" db:"in_progress_issues"`
	ResolvedIssues   int64     `json:"resolvedIssues" db:"resolved_issues"`
	UnassignedIssues int64     `json:"unassignedIssues" db:"unassigned_issues"`
	TotalAdmins      int64     `json:"totalAdmins" db:"total_admins"`
	TotalUsers       int64     `json:"totalUsers" db:"total_users"`
	ComputedAt       time.Time `json:"computedAt" db:"-"`
}

type ServiceAPI interface {
	Dashboard(ctx context.Context, identity *internal.Identity) (*DashboardStats, error)
}

type RepositoryAPI interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Cache keeps the last good snapshot. Implementations treat outages as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DashboardStats is the body of GET /stats/dashboard. Fleet counters are only
// filled in for superadmins.
type DashboardStats struct {
	TotalIssues      int64      `json:"totalIssues"`
	OpenIssues       int64      `json:"openIssues"`
	InProgressIssues int64      `json:"inProgressIssues"`
	ResolvedIssues   int64      `json:"resolvedIssues"`
	TotalAdmins      *int64     `json:"totalAdmins,omitempty"`
	TotalUsers       *int64     `json:"totalUsers,omitempty"`
	UnassignedIssues *int64     `json:"unassignedIssues,omitempty"`
	ComputedAt       *time.Time `json:"computedAt,omitempty"`
	Stale            bool       `json:"stale"`
	Notice           string     `json:"notice,omitempty"`
}

func toDashboard(s *Snapshot, fleet bool) *DashboardStats {
	d := &DashboardStats{
		TotalIssues:      s.TotalIssues,
		OpenIssues:       s.OpenIssues,
		InProgressIssues: s.InProgressIssues,
		ResolvedIssues:   s.ResolvedIssues,
	}
	if !s.ComputedAt.IsZero() {
		at := s.ComputedAt
		d.ComputedAt = &at
	}
	if fleet {
		admins, users, unassigned := s.TotalAdmins, s.TotalUsers, s.UnassignedIssues
		d.TotalAdmins = &admins
		d.TotalUsers = &users
		d.UnassignedIssues = &unassigned
	}
	return d
}
