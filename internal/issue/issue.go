package issue

import (
	"context"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/media"
)

type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

var Statuses = []string{string(StatusOpen), string(StatusInProgress), string(StatusResolved)}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var Priorities = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityCritical)}

const (
	DefaultOfficerLabel = "To be assigned"
	DefaultTimeline     = "Under review"

	ReportPoints int64 = 10
	UpvotePoints int64 = 5

	MaxImages   = 5
	mediaPrefix = "issues"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Issue struct {
	ID              int64
	Title           string
	Description     string
	Category        string
	Priority        Priority
	Status          Status
	Location        string
	Coordinates     *Coordinates
	ReportedBy      int64
	ReporterContact string
	ReporterAddress string
	AssignedAdmin   *int64
	AssignedOfficer string
	Timeline        string
	Upvotes         int64
	Images          []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Change is one staff write. It only lands while the stored status still
// equals From; nil fields keep their stored value.
type Change struct {
	From          Status
	To            *Status
	Officer       *string
	AssignedAdmin *int64
}

func (c Change) statusChanged() bool {
	return c.To != nil && *c.To != c.From
}

type ServiceAPI interface {
	Create(ctx context.Context, identity *internal.Identity, dto CreateIssueDTO, uploads []media.Upload) (*Issue, error)
	Get(ctx context.Context, id int64) (*Issue, error)
	List(ctx context.Context, filter ListFilter) ([]*Issue, error)
	ListByReporter(ctx context.Context, identity *internal.Identity) ([]*Issue, error)
	Update(ctx context.Context, identity *internal.Identity, id int64, dto UpdateIssueDTO) (*Issue, error)
	Assign(ctx context.Context, identity *internal.Identity, id int64, adminID int64) (*Issue, error)
	Upvote(ctx context.Context, identity *internal.Identity, id int64) (*UpvoteResponse, error)
	AdminIssues(ctx context.Context, identity *internal.Identity) ([]*Issue, error)
}

type RepositoryAPI interface {
	// Create inserts the issue with its images and credits the reporter in one transaction.
	Create(ctx context.Context, issue *Issue, reporterPoints int64) error
	GetByID(ctx context.Context, id int64) (*Issue, error)
	List(ctx context.Context, filter ListFilter) ([]*Issue, error)
	ListByReporter(ctx context.Context, userID int64) ([]*Issue, error)
	// ListVisibleTo returns issues assigned to adminID plus unassigned issues in categories.
	ListVisibleTo(ctx context.Context, adminID int64, categories []string) ([]*Issue, error)
	// Apply writes every field of change in a single conditional update.
	Apply(ctx context.Context, id int64, change Change) error
	Assign(ctx context.Context, id int64, adminID int64) error
	// Upvote records the vote, bumps the counter and credits the voter in one transaction.
	Upvote(ctx context.Context, issueID, userID int64, voterPoints int64) (int64, error)
	VotedIssueIDs(ctx context.Context, userID int64) ([]int64, error)
}

// UserLookup resolves accounts referenced by issues.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}
