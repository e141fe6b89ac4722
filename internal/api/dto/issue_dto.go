package dto

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// CreateIssueRequest payload. Status is accepted for client compatibility and ignored.
type CreateIssueRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Priority    *string `json:"priority"`
	Severity    *string `json:"severity"`
	Status      *string `json:"status"`
}

// UpdateIssueRequest is a partial update; omitted fields keep their value.
type UpdateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Severity    *string `json:"severity"`
}

// IssueListQuery captures listing filters from the query string.
type IssueListQuery struct {
	Status   string `query:"status"`
	Priority string `query:"priority"`
	Severity string `query:"severity"`
	Search   string `query:"search"`
	Page     *int   `query:"page" validate:"omitempty,min=1"`
	Limit    *int   `query:"limit" validate:"omitempty,min=1,max=100"`
}

// UserSummaryResponse is the owner projection embedded in issues.
type UserSummaryResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
}

// IssueResponse represents one issue.
type IssueResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      domain.IssueStatus   `json:"status"`
	Priority    domain.IssuePriority `json:"priority"`
	Severity    domain.IssueSeverity `json:"severity"`
	CreatedBy   UserSummaryResponse  `json:"createdBy"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// IssueListResponse is the listing envelope.
type IssueListResponse struct {
	Success     bool            `json:"success"`
	Count       int             `json:"count"`
	Total       int64           `json:"total"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Data        []IssueResponse `json:"data"`
}

// IssueStatsResponse aggregates counts. Keys are the enum values.
type IssueStatsResponse struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByPriority map[string]int64 `json:"byPriority"`
	BySeverity map[string]int64 `json:"bySeverity"`
}

// IssueHistoryResponse is one audit entry.
type IssueHistoryResponse struct {
	ID        string    `json:"id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	ChangedBy string    `json:"changedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	owner := UserSummaryResponse{ID: issue.CreatedBy}
	if issue.Creator != nil {
		owner = UserSummaryResponse{ID: issue.Creator.ID, Email: issue.Creator.Email, Name: issue.Creator.Name}
	}
	return IssueResponse{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      issue.Status,
		Priority:    issue.Priority,
		Severity:    issue.Severity,
		CreatedBy:   owner,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
}

// NewIssueStatsResponse maps stats, keeping every bucket.
func NewIssueStatsResponse(stats *domain.IssueStats) IssueStatsResponse {
	resp := IssueStatsResponse{
		Total:      stats.Total,
		ByStatus:   make(map[string]int64, len(domain.IssueStatuses)),
		ByPriority: make(map[string]int64, len(domain.IssuePriorities)),
		BySeverity: make(map[string]int64, len(domain.IssueSeverities)),
	}
	for _, s := range domain.IssueStatuses {
		resp.ByStatus[string(s)] = stats.ByStatus[s]
	}
	for _, p := range domain.IssuePriorities {
		resp.ByPriority[string(p)] = stats.ByPriority[p]
	}
	for _, s := range domain.IssueSeverities {
		resp.BySeverity[string(s)] = stats.BySeverity[s]
	}
	return resp
}

// NewIssueHistoryResponse maps audit entries.
func NewIssueHistoryResponse(entries []domain.IssueHistory) []IssueHistoryResponse {
	out := make([]IssueHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, IssueHistoryResponse{
			ID:        e.ID,
			Field:     string(e.Field),
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			ChangedBy: e.ChangedBy,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
