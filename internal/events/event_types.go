package events

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated EventType = "issue_created"
	EventIssueUpdated EventType = "issue_updated"
	EventIssueDeleted EventType = "issue_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	IssueID   string    `json:"issue_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Title    string               `json:"title"`
	Status   domain.IssueStatus   `json:"status"`
	Priority domain.IssuePriority `json:"priority"`
	Severity domain.IssueSeverity `json:"severity"`
}

// FieldChange describes one attribute transition.
type FieldChange struct {
	Field    domain.IssueField `json:"field"`
	OldValue string            `json:"old_value"`
	NewValue string            `json:"new_value"`
}

// IssueUpdatedPayload payload. Changes is empty when an update rewrote nothing.
type IssueUpdatedPayload struct {
	Changes []FieldChange `json:"changes"`
}

// IssueDeletedPayload payload.
type IssueDeletedPayload struct {
	Title  string             `json:"title"`
	Status domain.IssueStatus `json:"status"`
}
