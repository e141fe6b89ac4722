package domain

import (
	"fmt"
	"time"
)

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
)

// IssuePriority enumerates urgency.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "Low"
	IssuePriorityMedium IssuePriority = "Medium"
	IssuePriorityHigh   IssuePriority = "High"
)

// IssueSeverity enumerates impact.
type IssueSeverity string

const (
	IssueSeverityCritical IssueSeverity = "Critical"
	IssueSeverityMajor    IssueSeverity = "Major"
	IssueSeverityMinor    IssueSeverity = "Minor"
)

// Ordered value sets. Stats buckets are emitted in this order.
var (
	IssueStatuses   = []IssueStatus{IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed}
	IssuePriorities = []IssuePriority{IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh}
	IssueSeverities = []IssueSeverity{IssueSeverityCritical, IssueSeverityMajor, IssueSeverityMinor}
)

// ParseIssueStatus returns the status matching s exactly.
func ParseIssueStatus(s string) (IssueStatus, error) {
	for _, v := range IssueStatuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ParseIssuePriority returns the priority matching s exactly.
func ParseIssuePriority(s string) (IssuePriority, error) {
	for _, v := range IssuePriorities {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// ParseIssueSeverity returns the severity matching s exactly.
func ParseIssueSeverity(s string) (IssueSeverity, error) {
	for _, v := range IssueSeverities {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Issue is the aggregate tracked by the service. CreatedBy never changes after creation.
type Issue struct {
	ID          string
	Title       string
	Description string
	Status      IssueStatus
	Priority    IssuePriority
	Severity    IssueSeverity
	CreatedBy   string
	Creator     *UserSummary
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOwnedBy reports whether userID created the issue.
func (i *Issue) IsOwnedBy(userID string) bool {
	return i.CreatedBy == userID
}

// IssueStats aggregates issue counts. Every bucket is present, zero or not.
type IssueStats struct {
	Total      int64
	ByStatus   map[IssueStatus]int64
	ByPriority map[IssuePriority]int64
	BySeverity map[IssueSeverity]int64
}

// NewIssueStats returns stats with every bucket initialised to zero.
func NewIssueStats() *IssueStats {
	stats := &IssueStats{
		ByStatus:   make(map[IssueStatus]int64, len(IssueStatuses)),
		ByPriority: make(map[IssuePriority]int64, len(IssuePriorities)),
		BySeverity: make(map[IssueSeverity]int64, len(IssueSeverities)),
	}
	for _, s := range IssueStatuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range IssuePriorities {
		stats.ByPriority[p] = 0
	}
	for _, s := range IssueSeverities {
		stats.BySeverity[s] = 0
	}
	return stats
}

// Add folds count issues with the given attributes into the stats.
func (s *IssueStats) Add(status IssueStatus, priority IssuePriority, severity IssueSeverity, count int64) {
	s.Total += count
	s.ByStatus[status] += count
	s.ByPriority[priority] += count
	s.BySeverity[severity] += count
}
