package user

import (
	"context"

	"github.com/frahmantamala/civic-report/internal/core/user"
)

type ServiceAPI interface {
	GetMe(ctx context.Context, userID int64) (*Profile, error)
	ListAdmins(ctx context.Context) ([]AdminResponse, error)
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	ListByRole(ctx context.Context, role user.Role) ([]*user.User, error)
}

// VoteReader exposes the vote ledger entries of a single user.
type VoteReader interface {
	VotedIssueIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Profile is the current user as returned by GET /users/me.
type Profile struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	Department    string  `json:"department,omitempty"`
	Points        int64   `json:"points"`
	Phone         string  `json:"phone,omitempty"`
	Address       string  `json:"address,omitempty"`
	VotedIssueIDs []int64 `json:"votedIssueIds"`
}

type AdminResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type AdminsResponse struct {
	Admins []AdminResponse `json:"admins"`
}

func ToProfile(u *user.User, voted []int64) *Profile {
	if voted == nil {
		voted = []int64{}
	}
	return &Profile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		Department:    u.Department,
		Points:        u.Points,
		Phone:         u.Phone,
		Address:       u.Address,
		VotedIssueIDs: voted,
	}
}

func ToAdminResponse(u *user.User) AdminResponse {
	return AdminResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
	}
}
