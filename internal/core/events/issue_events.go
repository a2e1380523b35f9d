package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeIssueCreated       = "issue.created"
	EventTypeIssueStatusChanged = "issue.status_changed"
	EventTypeIssueAssigned      = "issue.assigned"
	EventTypeIssueUpvoted       = "issue.upvoted"
)

type IssueCreatedEvent struct {
	BaseEvent
	IssueID    int64  `json:"issue_id"`
	ReportedBy int64  `json:"reported_by"`
	Category   string `json:"category"`
	Department string `json:"department"`
}

func NewIssueCreatedEvent(issueID, reportedBy int64, category, department string) *IssueCreatedEvent {
	return &IssueCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeIssueCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"issue_id":    issueID,
				"reported_by": reportedBy,
				"category":    category,
				"department":  department,
			},
		},
		IssueID:    issueID,
		ReportedBy: reportedBy,
		Category:   category,
		Department: department,
	}
}

type IssueStatusChangedEvent struct {
	BaseEvent
	IssueID   int64  `json:"issue_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy int64  `json:"changed_by"`
}

func NewIssueStatusChangedEvent(issueID int64, from, to string, changedBy int64) *IssueStatusChangedEvent {
	return &IssueStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeIssueStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"issue_id":   issueID,
				"from":       from,
				"to":         to,
				"changed_by": changedBy,
			},
		},
		IssueID:   issueID,
		From:      from,
		To:        to,
		ChangedBy: changedBy,
	}
}

type IssueAssignedEvent struct {
	BaseEvent
	IssueID    int64 `json:"issue_id"`
	AdminID    int64 `json:"admin_id"`
	AssignedBy int64 `json:"assigned_by"`
}

func NewIssueAssignedEvent(issueID, adminID, assignedBy int64) *IssueAssignedEvent {
	return &IssueAssignedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeIssueAssigned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"issue_id":    issueID,
				"admin_id":    adminID,
				"assigned_by": assignedBy,
			},
		},
		IssueID:    issueID,
		AdminID:    adminID,
		AssignedBy: assignedBy,
	}
}

type IssueUpvotedEvent struct {
	BaseEvent
	IssueID int64 `json:"issue_id"`
	UserID  int64 `json:"user_id"`
	Upvotes int64 `json:"upvotes"`
}

func NewIssueUpvotedEvent(issueID, userID, upvotes int64) *IssueUpvotedEvent {
	return &IssueUpvotedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeIssueUpvoted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"issue_id": issueID,
				"user_id":  userID,
				"upvotes":  upvotes,
			},
		},
		IssueID: issueID,
		UserID:  userID,
		Upvotes: upvotes,
	}
}
