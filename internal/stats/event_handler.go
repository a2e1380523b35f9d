package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/civic-report/internal/core/events"
)

const refreshTimeout = 5 * time.Second

type Refresher interface {
	Refresh(ctx context.Context) error
}

// EventHandler refreshes the cached snapshot after issue writes.
type EventHandler struct {
	refresher Refresher
	logger    *slog.Logger
}

func NewEventHandler(refresher Refresher, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		refresher: refresher,
		logger:    logger,
	}
}

func (h *EventHandler) HandleIssueChanged(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	if err := h.refresher.Refresh(ctx); err != nil {
		h.logger.Warn("stats snapshot refresh failed",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
		return err
	}

	h.logger.Debug("stats snapshot refreshed", "event_type", event.EventType(), "event_id", event.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	types := []string{
		events.EventTypeIssueCreated,
		events.EventTypeIssueStatusChanged,
		events.EventTypeIssueAssigned,
	}
	for _, t := range types {
		eventBus.Subscribe(t, h.HandleIssueChanged)
	}

	h.logger.Info("stats event handlers registered", "handlers", types)
}
