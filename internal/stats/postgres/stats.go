package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/frahmantamala/civic-report/internal/stats"
	"github.com/jmoiron/sqlx"
)

const issueCountsQuery = `SELECT
	COUNT(*) AS total_issues,
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS open_issues,
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress_issues,
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS resolved_issues,
	COALESCE(SUM(CASE WHEN assigned_admin IS NULL THEN 1 ELSE 0 END), 0) AS unassigned_issues
FROM issues`

// Only active accounts count. totalUsers is the citizen population.
const userCountsQuery = `SELECT
	COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0) AS total_admins,
	COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0) AS total_users
FROM users
WHERE is_active = ?`

type issueCounts struct {
	Total      int64 `db:"total_issues"`
	Open       int64 `db:"open_issues"`
	InProgress int64 `db:"in_progress_issues"`
	Resolved   int64 `db:"resolved_issues"`
	Unassigned int64 `db:"unassigned_issues"`
}

type userCounts struct {
	Admins   int64 `db:"total_admins"`
	Citizens int64 `db:"total_users"`
}

type pgRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) stats.RepositoryAPI {
	return &pgRepo{db: db}
}

func (p *pgRepo) Snapshot(ctx context.Context) (*stats.Snapshot, error) {
	var ic issueCounts
	query := p.db.Rebind(issueCountsQuery)
	err := p.db.GetContext(ctx, &ic, query,
		string(issue.StatusOpen), string(issue.StatusInProgress), string(issue.StatusResolved))
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}

	var uc userCounts
	query = p.db.Rebind(userCountsQuery)
	if err := p.db.GetContext(ctx, &uc, query, string(user.RoleAdmin), string(user.RoleCitizen), true); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &stats.Snapshot{
		TotalIssues:      ic.Total,
		OpenIssues:       ic.Open,
		InProgressIssues: ic.InProgress,
		ResolvedIssues:   ic.Resolved,
		UnassignedIssues: ic.Unassigned,
		TotalAdmins:      uc.Admins,
		TotalUsers:       uc.Citizens,
	}, nil
}
