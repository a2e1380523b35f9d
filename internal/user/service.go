package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
)

type Service struct {
	repo   RepositoryAPI
	votes  VoteReader
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, votes VoteReader, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		votes:  votes,
		logger: logger,
	}
}

// GetMe returns the caller's profile together with the issues they have upvoted.
func (s *Service) GetMe(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrUserNotFound
		}
		s.logger.Error("failed to load user", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to load user", err)
	}

	voted, err := s.votes.VotedIssueIDs(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load voted issues", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to load voted issues", err)
	}

	return ToProfile(u, voted), nil
}

// ListAdmins returns every department admin, ordered by department then name.
func (s *Service) ListAdmins(ctx context.Context) ([]AdminResponse, error) {
	admins, err := s.repo.ListByRole(ctx, user.RoleAdmin)
	if err != nil {
		s.logger.Error("failed to list admins", "error", err)
		return nil, internal.NewInternalError("failed to list admins", err)
	}

	responses := make([]AdminResponse, 0, len(admins))
	for _, a := range admins {
		responses = append(responses, ToAdminResponse(a))
	}

	s.logger.Info("listed admins", "count", len(responses))
	return responses, nil
}
