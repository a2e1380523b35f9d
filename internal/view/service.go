package view

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/auth"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/issue"
)

type Service struct {
	issues   IssueReader
	profiles ProfileReader
	stats    StatsReader
	logger   *slog.Logger
}

func NewService(issues IssueReader, profiles ProfileReader, stats StatsReader, logger *slog.Logger) *Service {
	return &Service{
		issues:   issues,
		profiles: profiles,
		stats:    stats,
		logger:   logger,
	}
}

// Dashboard assembles the caller's projection. filter only narrows the issue
// lists of the citizen and superadmin views.
func (s *Service) Dashboard(ctx context.Context, identity *internal.Identity, filter issue.ListFilter) (*Dashboard, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}

	role := user.Role(identity.Role)
	kind, err := ViewFor(role)
	if err != nil {
		s.logger.Warn("no dashboard for role", "user_id", identity.UserID, "role", identity.Role)
		return nil, err
	}

	profile, err := s.profiles.GetMe(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	summary, err := s.stats.Dashboard(ctx, identity)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		View:         kind,
		Capabilities: auth.CapabilitiesFor(role),
		Profile:      profile,
		Stats:        summary,
		Categories:   issue.Routes(),
	}

	switch kind {
	case CitizenView:
		d.Citizen, err = s.citizenSection(ctx, identity, profile.VotedIssueIDs, profile.Points, filter)
	case AdminView:
		d.Admin, err = s.adminSection(ctx, identity)
	case SuperAdminView:
		d.SuperAdmin, err = s.superAdminSection(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("dashboard rendered", "user_id", identity.UserID, "view", kind)
	return d, nil
}

func (s *Service) citizenSection(ctx context.Context, identity *internal.Identity, voted []int64, points int64, filter issue.ListFilter) (*CitizenSection, error) {
	all, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	mine, err := s.issues.ListByReporter(ctx, identity)
	if err != nil {
		return nil, err
	}
	if voted == nil {
		voted = []int64{}
	}
	return &CitizenSection{
		Issues:        issue.ToIssuesResponse(all),
		MyReports:     issue.ToIssuesResponse(mine),
		VotedIssueIDs: voted,
		Points:        points,
	}, nil
}

func (s *Service) adminSection(ctx context.Context, identity *internal.Identity) (*AdminSection, error) {
	mine, err := s.issues.AdminIssues(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &AdminSection{
		Department: identity.Department,
		MyIssues:   issue.ToIssuesResponse(mine),
	}, nil
}

func (s *Service) superAdminSection(ctx context.Context, filter issue.ListFilter) (*SuperAdminSection, error) {
	all, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	admins, err := s.profiles.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	return &SuperAdminSection{
		Issues: issue.ToIssuesResponse(all),
		Admins: admins,
	}, nil
}
