package issue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/events"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/geo"
	"github.com/frahmantamala/civic-report/internal/media"
)

const cleanupTimeout = 10 * time.Second

type Service struct {
	repo           RepositoryAPI
	users          UserLookup
	storage        media.Storage
	locator        geo.Locator
	publisher      events.Publisher
	maxUploadBytes int64
	logger         *slog.Logger
}

type Dependencies struct {
	Repository     RepositoryAPI
	Users          UserLookup
	Storage        media.Storage
	Locator        geo.Locator
	Publisher      events.Publisher
	MaxUploadBytes int64
	Logger         *slog.Logger
}

func NewService(deps Dependencies) *Service {
	locator := deps.Locator
	if locator == nil {
		locator = geo.Disabled{}
	}
	return &Service{
		repo:           deps.Repository,
		users:          deps.Users,
		storage:        deps.Storage,
		locator:        locator,
		publisher:      deps.Publisher,
		maxUploadBytes: deps.MaxUploadBytes,
		logger:         deps.Logger,
	}
}

// Create stores a new report from a citizen. Images are uploaded before the
// row is written and removed again if the write does not happen.
func (s *Service) Create(ctx context.Context, identity *internal.Identity, dto CreateIssueDTO, uploads []media.Upload) (*Issue, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}
	if user.Role(identity.Role) != user.RoleCitizen {
		s.logger.Warn("issue submission denied", "user_id", identity.UserID, "role", identity.Role)
		return nil, internal.ErrRoleNotPermitted
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if len(uploads) > MaxImages {
		return nil, internal.NewValidationFieldError("images", fmt.Sprintf("at most %d images are allowed", MaxImages), internal.ErrCodeInvalidMedia)
	}
	for _, u := range uploads {
		if err := media.Validate(u, s.maxUploadBytes); err != nil {
			return nil, err
		}
	}

	reporter, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, s.storeError("load reporter", err)
	}

	issue := &Issue{
		Title:           dto.Title,
		Description:     dto.Description,
		Category:        dto.Category,
		Priority:        Priority(dto.Priority),
		Status:          StatusOpen,
		Location:        dto.Location,
		ReportedBy:      reporter.ID,
		ReporterContact: reporter.Phone,
		ReporterAddress: reporter.Address,
		AssignedOfficer: DefaultOfficerLabel,
		Timeline:        DefaultTimeline,
		Upvotes:         1,
	}
	if reporter.Phone == "" {
		issue.ReporterContact = reporter.Email
	}

	if dto.Lat != nil && dto.Lng != nil {
		issue.Coordinates = &Coordinates{Lat: *dto.Lat, Lng: *dto.Lng}
	} else if point, err := s.locator.Locate(ctx, dto.Location); err == nil {
		issue.Coordinates = &Coordinates{Lat: point.Lat, Lng: point.Lng}
	} else if !errors.Is(err, geo.ErrNoMatch) {
		s.logger.Warn("geolocation unavailable, continuing without coordinates", "error", err)
	}

	var stored []media.Object
	for _, u := range uploads {
		obj, err := s.storage.Put(ctx, mediaPrefix, u)
		if err != nil {
			s.removeObjects(ctx, stored)
			s.logger.Error("failed to store issue image", "error", err, "user_id", identity.UserID)
			return nil, internal.NewExternalError("failed to store images", internal.ErrCodeStorageUnavailable, err)
		}
		stored = append(stored, obj)
		issue.Images = append(issue.Images, obj.URL)
	}

	if err := ctx.Err(); err != nil {
		s.removeObjects(ctx, stored)
		return nil, internal.NewInternalError("request cancelled", err)
	}

	if err := s.repo.Create(ctx, issue, ReportPoints); err != nil {
		s.removeObjects(ctx, stored)
		return nil, s.storeError("create issue", err)
	}

	dept, _ := DepartmentFor(issue.Category)
	s.publish(ctx, events.NewIssueCreatedEvent(issue.ID, issue.ReportedBy, issue.Category, dept))

	s.logger.Info("issue created",
		"issue_id", issue.ID,
		"user_id", identity.UserID,
		"category", issue.Category,
		"images", len(issue.Images))
	return issue, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Issue, error) {
	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get issue", err)
	}
	return issue, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Issue, error) {
	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	issues, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("list issues", err)
	}
	return issues, nil
}

func (s *Service) ListByReporter(ctx context.Context, identity *internal.Identity) ([]*Issue, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}
	issues, err := s.repo.ListByReporter(ctx, identity.UserID)
	if err != nil {
		return nil, s.storeError("list issues by reporter", err)
	}
	return issues, nil
}

// Update applies a partial staff update. Everything is checked before the
// first write so a refused request changes nothing.
func (s *Service) Update(ctx context.Context, identity *internal.Identity, id int64, dto UpdateIssueDTO) (*Issue, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}
	if !user.Role(identity.Role).IsStaff() {
		s.logger.Warn("issue update denied", "user_id", identity.UserID, "role", identity.Role, "issue_id", id)
		return nil, internal.ErrRoleNotPermitted
	}
	if len(dto.Rejected) > 0 {
		s.logger.Warn("issue update touched immutable fields", "issue_id", id, "fields", dto.Rejected)
		return nil, rejectedFieldsError(dto.Rejected)
	}
	if dto.Empty() {
		return nil, internal.NewValidationError("no changes requested", internal.ErrCodeValidationFailed)
	}
	if dto.AssignedAdmin != nil && user.Role(identity.Role) != user.RoleSuperAdmin {
		s.logger.Warn("reassignment denied", "user_id", identity.UserID, "issue_id", id)
		return nil, internal.ErrRoleNotPermitted
	}
	if dto.Status != nil && !Status(*dto.Status).Valid() {
		return nil, invalidStatusError()
	}
	if dto.AssignedOfficer != nil && len(*dto.AssignedOfficer) > 100 {
		return nil, internal.NewValidationFieldError("assignedOfficer", "assignedOfficer must not exceed 100 characters", internal.ErrCodeValidationFailed)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get issue", err)
	}
	if !VisibleTo(current, identity) {
		s.logger.Warn("issue outside admin scope", "user_id", identity.UserID, "department", identity.Department, "issue_id", id)
		return nil, internal.ErrIssueOutOfScope
	}

	var target Status
	if dto.Status != nil {
		target = Status(*dto.Status)
		if err := CanTransition(current.Status, target); err != nil {
			if errors.Is(err, internal.ErrInvalidTransition) {
				s.logger.Warn("status transition refused", "issue_id", id, "from", current.Status, "to", target)
			}
			return nil, err
		}
	}
	if dto.AssignedAdmin != nil {
		if err := s.requireAdmin(ctx, *dto.AssignedAdmin); err != nil {
			return nil, err
		}
	}

	change := Change{From: current.Status, Officer: dto.AssignedOfficer, AssignedAdmin: dto.AssignedAdmin}
	if dto.Status != nil {
		change.To = &target
	}
	if err := s.repo.Apply(ctx, id, change); err != nil {
		if errors.Is(err, internal.ErrConcurrentUpdate) {
			s.logger.Warn("status changed concurrently", "issue_id", id, "expected", current.Status)
		}
		return nil, s.storeError("update issue", err)
	}

	if change.statusChanged() {
		s.publish(ctx, events.NewIssueStatusChangedEvent(id, string(current.Status), string(target), identity.UserID))
	}
	if dto.AssignedAdmin != nil {
		s.publish(ctx, events.NewIssueAssignedEvent(id, *dto.AssignedAdmin, identity.UserID))
	}
	s.logger.Info("issue updated", "issue_id", id, "status", change.statusChanged(),
		"officer", dto.AssignedOfficer != nil, "assigned", dto.AssignedAdmin != nil, "user_id", identity.UserID)

	return s.Get(ctx, id)
}

// Assign hands an issue to a department admin. Status is left untouched.
func (s *Service) Assign(ctx context.Context, identity *internal.Identity, id int64, adminID int64) (*Issue, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}
	if user.Role(identity.Role) != user.RoleSuperAdmin {
		s.logger.Warn("assignment denied", "user_id", identity.UserID, "role", identity.Role, "issue_id", id)
		return nil, internal.ErrRoleNotPermitted
	}
	if err := (AssignDTO{AdminID: adminID}).Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, s.storeError("get issue", err)
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if err := s.repo.Assign(ctx, id, adminID); err != nil {
		return nil, s.storeError("assign issue", err)
	}

	s.publish(ctx, events.NewIssueAssignedEvent(id, adminID, identity.UserID))
	s.logger.Info("issue assigned", "issue_id", id, "admin_id", adminID, "user_id", identity.UserID)
	return s.Get(ctx, id)
}

// Upvote records one vote per user per issue. Citizens earn points for it.
func (s *Service) Upvote(ctx context.Context, identity *internal.Identity, id int64) (*UpvoteResponse, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}

	var points int64
	if user.Role(identity.Role) == user.RoleCitizen {
		points = UpvotePoints
	}

	count, err := s.repo.Upvote(ctx, id, identity.UserID, points)
	if err != nil {
		if errors.Is(err, internal.ErrAlreadyVoted) {
			s.logger.Warn("duplicate upvote rejected", "issue_id", id, "user_id", identity.UserID)
		}
		return nil, s.storeError("upvote issue", err)
	}

	s.publish(ctx, events.NewIssueUpvotedEvent(id, identity.UserID, count))
	s.logger.Info("issue upvoted", "issue_id", id, "user_id", identity.UserID, "upvotes", count)
	return &UpvoteResponse{IssueID: id, Upvotes: count}, nil
}

// AdminIssues is the staff work list: everything for a superadmin, the
// visible set for a department admin.
func (s *Service) AdminIssues(ctx context.Context, identity *internal.Identity) ([]*Issue, error) {
	if identity == nil {
		return nil, internal.ErrMissingToken
	}

	switch user.Role(identity.Role) {
	case user.RoleSuperAdmin:
		return s.List(ctx, ListFilter{})
	case user.RoleAdmin:
		issues, err := s.repo.ListVisibleTo(ctx, identity.UserID, CategoriesFor(identity.Department))
		if err != nil {
			return nil, s.storeError("list admin issues", err)
		}
		return issues, nil
	default:
		return nil, internal.ErrRoleNotPermitted
	}
}

func (s *Service) requireAdmin(ctx context.Context, adminID int64) error {
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return internal.ErrAdminNotFound
		}
		return s.storeError("load admin", err)
	}
	if admin.Role != user.RoleAdmin || !admin.IsActive {
		return internal.ErrAdminNotFound
	}
	return nil
}

func (s *Service) removeObjects(ctx context.Context, objects []media.Object) {
	if len(objects) == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, obj := range objects {
		if err := s.storage.Remove(cleanupCtx, obj.Key); err != nil {
			s.logger.Warn("failed to remove orphaned image", "key", obj.Key, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func (s *Service) storeError(op string, err error) error {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	s.logger.Error("issue store failure", "op", op, "error", err)
	return internal.NewInternalError(fmt.Sprintf("failed to %s", op), err)
}
