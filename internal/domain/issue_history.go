package domain

import "time"

// IssueField names a mutable issue attribute tracked in history.
type IssueField string

const (
	IssueFieldTitle       IssueField = "title"
	IssueFieldDescription IssueField = "description"
	IssueFieldStatus      IssueField = "status"
	IssueFieldPriority    IssueField = "priority"
	IssueFieldSeverity    IssueField = "severity"
)

// IssueHistory is an immutable audit trail entry for one changed field.
type IssueHistory struct {
	ID        string
	IssueID   string
	Field     IssueField
	OldValue  string
	NewValue  string
	ChangedBy string
	CreatedAt time.Time
}
