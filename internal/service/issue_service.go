package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	msgMissingIssueFields = "Please provide title and description"
	msgNotOwnerUpdate     = "Not authorized to update this issue"
	msgNotOwnerDelete     = "Not authorized to delete this issue"
)

// StatsCache is a read-through cache for issue stats. Get reports a miss with false
// along with the generation to hand back to Set; Set skips the write once
// Invalidate has moved past that generation.
type StatsCache interface {
	Get(ctx context.Context) (*domain.IssueStats, int64, bool, error)
	Set(ctx context.Context, generation int64, stats *domain.IssueStats) error
	Invalidate(ctx context.Context) error
}

// IssueService enforces the issue lifecycle and ownership rules.
type IssueService struct {
	issues     repository.IssueRepository
	history    repository.IssueHistoryRepository
	dispatcher events.Dispatcher
	cache      StatsCache
	logger     *zap.Logger
	now        func() time.Time
}

// IssueDependencies bundles collaborators for the issue service.
// Dispatcher, Cache and Clock are optional.
type IssueDependencies struct {
	IssueRepo   repository.IssueRepository
	HistoryRepo repository.IssueHistoryRepository
	Dispatcher  events.Dispatcher
	Cache       StatsCache
	Logger      *zap.Logger
	Clock       func() time.Time
}

// CreateIssueInput describes issue creation payload. Nil enums take their defaults.
type CreateIssueInput struct {
	Title       string
	Description string
	Priority    *string
	Severity    *string
}

// UpdateIssueInput is a partial update; nil fields keep their current value.
type UpdateIssueInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Severity    *string
}

// ListIssuesInput holds listing filters. Empty strings do not filter; zero paging takes defaults.
type ListIssuesInput struct {
	Status   string
	Priority string
	Severity string
	Search   string
	Page     int
	Limit    int
}

// IssuePage is one page of a listing.
type IssuePage struct {
	Items       []domain.Issue
	Total       int64
	TotalPages  int
	CurrentPage int
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	svc := &IssueService{
		issues:     deps.IssueRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Create stores a new issue owned by callerID. Status always starts as Open.
func (s *IssueService) Create(ctx context.Context, callerID string, input CreateIssueInput) (*domain.Issue, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError(msgMissingIssueFields, nil)
	}

	issue := &domain.Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      domain.IssueStatusOpen,
		Priority:    domain.IssuePriorityMedium,
		Severity:    domain.IssueSeverityMinor,
		CreatedBy:   callerID,
	}
	if input.Priority != nil {
		priority, err := parsePriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		issue.Priority = priority
	}
	if input.Severity != nil {
		severity, err := parseSeverity(*input.Severity)
		if err != nil {
			return nil, err
		}
		issue.Severity = severity
	}

	now := s.timestamp()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	created, err := s.issues.GetByID(ctx, issue.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.ID,
		ActorID: callerID,
		Payload: events.IssueCreatedPayload{
			Title:    issue.Title,
			Status:   issue.Status,
			Priority: issue.Priority,
			Severity: issue.Severity,
		},
	})
	return created, nil
}

// List returns a filtered page of issues, newest first. Listing is not restricted by owner.
func (s *IssueService) List(ctx context.Context, input ListIssuesInput) (*IssuePage, error) {
	page, limit := input.Page, input.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if page < 1 {
		return nil, apperrors.NewValidationError("page must be at least 1", map[string]any{"page": input.Page})
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, apperrors.NewValidationError("limit must be between 1 and 100", map[string]any{"limit": input.Limit})
	}
	if page-1 > math.MaxInt/limit {
		return nil, apperrors.NewValidationError("page is out of range", map[string]any{"page": input.Page})
	}

	filter := repository.IssueFilter{
		Search: strings.TrimSpace(input.Search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if input.Status != "" {
		status, err := parseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if input.Priority != "" {
		priority, err := parsePriority(input.Priority)
		if err != nil {
			return nil, err
		}
		filter.Priority = &priority
	}
	if input.Severity != "" {
		severity, err := parseSeverity(input.Severity)
		if err != nil {
			return nil, err
		}
		filter.Severity = &severity
	}

	items, total, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &IssuePage{
		Items:       items,
		Total:       total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
	}, nil
}

// GetByID fetches a single issue. Malformed ids read as not found.
func (s *IssueService) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, issueNotFound()
	}
	issue, err := s.issues.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, issueNotFound()
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return issue, nil
}

// Update applies a partial update on behalf of the owner and records the changed fields.
// Concurrent updates are last-write-wins.
func (s *IssueService) Update(ctx context.Context, callerID, id string, input UpdateIssueInput) (*domain.Issue, error) {
	issue, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !issue.IsOwnedBy(callerID) {
		return nil, apperrors.NewForbidden(msgNotOwnerUpdate)
	}

	changes, err := applyUpdate(issue, input)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	if !now.After(issue.UpdatedAt) {
		now = issue.UpdatedAt.Add(time.Microsecond)
	}
	issue.UpdatedAt = now

	if err := s.issues.Update(ctx, issue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, issueNotFound()
		}
		return nil, apperrors.NewInternalError(err)
	}

	for _, change := range changes {
		entry := &domain.IssueHistory{
			IssueID:   issue.ID,
			Field:     change.Field,
			OldValue:  change.OldValue,
			NewValue:  change.NewValue,
			ChangedBy: callerID,
			CreatedAt: now,
		}
		if err := s.history.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to record issue history",
				zap.String("issue_id", issue.ID),
				zap.String("field", string(change.Field)),
				zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueUpdated,
		IssueID: issue.ID,
		ActorID: callerID,
		Payload: events.IssueUpdatedPayload{Changes: changes},
	})
	return issue, nil
}

// Delete removes an issue on behalf of its owner. Deleting a missing issue is NotFound.
func (s *IssueService) Delete(ctx context.Context, callerID, id string) error {
	issue, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !issue.IsOwnedBy(callerID) {
		return apperrors.NewForbidden(msgNotOwnerDelete)
	}
	if err := s.issues.Delete(ctx, issue.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return issueNotFound()
		}
		return apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueDeleted,
		IssueID: issue.ID,
		ActorID: callerID,
		Payload: events.IssueDeletedPayload{Title: issue.Title, Status: issue.Status},
	})
	return nil
}

// Stats aggregates issue counts with every bucket present.
func (s *IssueService) Stats(ctx context.Context) (*domain.IssueStats, error) {
	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, gen, hit, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.logger.Warn("stats cache read failed", zap.Error(err))
		case hit:
			return cached, nil
		default:
			cacheable, generation = true, gen
		}
	}

	stats, err := s.issues.Stats(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, generation, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// History lists the audit trail of an issue, oldest first.
func (s *IssueService) History(ctx context.Context, id string) ([]domain.IssueHistory, error) {
	issue, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByIssue(ctx, issue.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

func (s *IssueService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.timestamp()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.Error(err))
	}
}

// applyUpdate mutates issue in place and returns the fields whose value changed.
// Nothing is mutated when any field is invalid.
func applyUpdate(issue *domain.Issue, input UpdateIssueInput) ([]events.FieldChange, error) {
	next := *issue

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("Title cannot be empty", map[string]any{"field": "title"})
		}
		next.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("Description cannot be empty", map[string]any{"field": "description"})
		}
		next.Description = description
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		next.Status = status
	}
	if input.Priority != nil {
		priority, err := parsePriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		next.Priority = priority
	}
	if input.Severity != nil {
		severity, err := parseSeverity(*input.Severity)
		if err != nil {
			return nil, err
		}
		next.Severity = severity
	}

	changes := []events.FieldChange{}
	record := func(field domain.IssueField, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, events.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}
	record(domain.IssueFieldTitle, issue.Title, next.Title)
	record(domain.IssueFieldDescription, issue.Description, next.Description)
	record(domain.IssueFieldStatus, string(issue.Status), string(next.Status))
	record(domain.IssueFieldPriority, string(issue.Priority), string(next.Priority))
	record(domain.IssueFieldSeverity, string(issue.Severity), string(next.Severity))

	*issue = next
	return changes, nil
}

func issueNotFound() error {
	return apperrors.NewNotFound("Issue", nil)
}

func parseStatus(raw string) (domain.IssueStatus, error) {
	status, err := domain.ParseIssueStatus(raw)
	if err != nil {
		return "", enumError("status", raw, domain.IssueStatuses)
	}
	return status, nil
}

func parsePriority(raw string) (domain.IssuePriority, error) {
	priority, err := domain.ParseIssuePriority(raw)
	if err != nil {
		return "", enumError("priority", raw, domain.IssuePriorities)
	}
	return priority, nil
}

func parseSeverity(raw string) (domain.IssueSeverity, error) {
	severity, err := domain.ParseIssueSeverity(raw)
	if err != nil {
		return "", enumError("severity", raw, domain.IssueSeverities)
	}
	return severity, nil
}

func enumError[T ~string](field, value string, allowed []T) error {
	values := make([]string, len(allowed))
	for i, v := range allowed {
		values[i] = string(v)
	}
	return apperrors.NewValidationError("Invalid "+field+" value", map[string]any{
		"field":   field,
		"value":   value,
		"allowed": values,
	})
}
