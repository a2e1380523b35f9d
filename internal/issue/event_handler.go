package issue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/civic-report/internal/core/events"
)

// AuditHandler writes one structured audit line per issue event.
type AuditHandler struct {
	logger *slog.Logger
}

func NewAuditHandler(logger *slog.Logger) *AuditHandler {
	return &AuditHandler{logger: logger.With("component", "issue_audit")}
}

func (h *AuditHandler) HandleIssueCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.IssueCreatedEvent)
	if !ok {
		return fmt.Errorf("expected IssueCreatedEvent, got %T", event)
	}
	h.logger.InfoContext(ctx, "issue reported",
		"issue_id", e.IssueID,
		"reported_by", e.ReportedBy,
		"category", e.Category,
		"department", e.Department,
		"event_id", e.EventID())
	return nil
}

func (h *AuditHandler) HandleIssueStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.IssueStatusChangedEvent)
	if !ok {
		return fmt.Errorf("expected IssueStatusChangedEvent, got %T", event)
	}
	h.logger.InfoContext(ctx, "issue status changed",
		"issue_id", e.IssueID,
		"from", e.From,
		"to", e.To,
		"changed_by", e.ChangedBy,
		"event_id", e.EventID())
	return nil
}

func (h *AuditHandler) HandleIssueAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.IssueAssignedEvent)
	if !ok {
		return fmt.Errorf("expected IssueAssignedEvent, got %T", event)
	}
	h.logger.InfoContext(ctx, "issue assigned",
		"issue_id", e.IssueID,
		"admin_id", e.AdminID,
		"assigned_by", e.AssignedBy,
		"event_id", e.EventID())
	return nil
}

func (h *AuditHandler) HandleIssueUpvoted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.IssueUpvotedEvent)
	if !ok {
		return fmt.Errorf("expected IssueUpvotedEvent, got %T", event)
	}
	h.logger.DebugContext(ctx, "issue upvoted",
		"issue_id", e.IssueID,
		"user_id", e.UserID,
		"upvotes", e.Upvotes,
		"event_id", e.EventID())
	return nil
}

func (h *AuditHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeIssueCreated, h.HandleIssueCreated)
	eventBus.Subscribe(events.EventTypeIssueStatusChanged, h.HandleIssueStatusChanged)
	eventBus.Subscribe(events.EventTypeIssueAssigned, h.HandleIssueAssigned)
	eventBus.Subscribe(events.EventTypeIssueUpvoted, h.HandleIssueUpvoted)

	h.logger.Info("issue audit handlers registered",
		"handlers", []string{
			events.EventTypeIssueCreated,
			events.EventTypeIssueStatusChanged,
			events.EventTypeIssueAssigned,
			events.EventTypeIssueUpvoted,
		})
}
