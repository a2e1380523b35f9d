package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/civic-report/internal/core/events"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/frahmantamala/civic-report/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage events: publish test events, inspect handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a test event",
	Long:      `Publish a test issue event through the audit handlers for debugging`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypeIssueCreated, events.EventTypeIssueStatusChanged, events.EventTypeIssueAssigned, events.EventTypeIssueUpvoted},
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventIssueID int64
	eventUserID  int64
)

func testEvent(eventType string) (events.Event, error) {
	switch eventType {
	case events.EventTypeIssueCreated:
		return events.NewIssueCreatedEvent(eventIssueID, eventUserID, "Public Safety", "Police Department"), nil
	case events.EventTypeIssueStatusChanged:
		return events.NewIssueStatusChangedEvent(eventIssueID, "Open", "In Progress", eventUserID), nil
	case events.EventTypeIssueAssigned:
		return events.NewIssueAssignedEvent(eventIssueID, eventUserID, eventUserID), nil
	case events.EventTypeIssueUpvoted:
		return events.NewIssueUpvotedEvent(eventIssueID, eventUserID, 2), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func publishTestEvent(eventType string) error {
	lg := logger.LoggerWrapper()

	event, err := testEvent(eventType)
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus(lg)
	issue.NewAuditHandler(lg).RegisterEventHandlers(eventBus)

	lg.Info("publishing test event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers", eventBus.HandlerCount(eventType))

	if err := eventBus.PublishSync(context.Background(), event); err != nil {
		lg.Error("failed to publish event", "error", err)
		return err
	}

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventIssueID, "issue", 1, "Issue id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventUserID, "user", 1, "User id carried by the event")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
