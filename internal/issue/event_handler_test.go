package issue_test

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/frahmantamala/civic-report/internal/core/events"
	"github.com/frahmantamala/civic-report/internal/issue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AuditHandler", func() {
	var (
		buf     *bytes.Buffer
		bus     *events.EventBus
		handler *issue.AuditHandler
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		buf = &bytes.Buffer{}
		lg := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		bus = events.NewEventBus(lg)
		handler = issue.NewAuditHandler(lg)
		handler.RegisterEventHandlers(bus)
	})

	It("should subscribe to every issue event", func() {
		Expect(bus.HandlerCount(events.EventTypeIssueCreated)).To(Equal(1))
		Expect(bus.HandlerCount(events.EventTypeIssueStatusChanged)).To(Equal(1))
		Expect(bus.HandlerCount(events.EventTypeIssueAssigned)).To(Equal(1))
		Expect(bus.HandlerCount(events.EventTypeIssueUpvoted)).To(Equal(1))
	})

	It("should write an audit line for a status change", func() {
		err := bus.PublishSync(ctx, events.NewIssueStatusChangedEvent(4, "Open", "Resolved", 9))
		Expect(err).NotTo(HaveOccurred())

		Expect(buf.String()).To(ContainSubstring("issue status changed"))
		Expect(buf.String()).To(ContainSubstring("issue_id=4"))
		Expect(buf.String()).To(ContainSubstring("component=issue_audit"))
	})

	It("should write an audit line for a new report", func() {
		err := bus.PublishSync(ctx, events.NewIssueCreatedEvent(1, 2, "Water & Sanitation", "Water & Sanitation"))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("issue reported"))
	})

	It("should reject a mistyped event", func() {
		wrong := events.BaseEvent{ID: "x", Type: events.EventTypeIssueAssigned}
		err := handler.HandleIssueAssigned(ctx, wrong)
		Expect(err).To(HaveOccurred())
	})
})
