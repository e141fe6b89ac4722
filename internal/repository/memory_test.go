package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

func seedUser(t *testing.T, store *MemoryStore, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: "Test", Email: email, PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func seedIssue(t *testing.T, store *MemoryStore, owner string, title string, at time.Time) *domain.Issue {
	t.Helper()
	issue := &domain.Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "desc " + title,
		Status:      domain.IssueStatusOpen,
		Priority:    domain.IssuePriorityMedium,
		Severity:    domain.IssueSeverityMinor,
		CreatedBy:   owner,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, store.Issues().Create(context.Background(), issue))
	return issue
}

func TestMemoryUsersRejectDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	user := seedUser(t, store, "a@example.com")
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	err := store.Users().Create(context.Background(), &domain.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := store.Users().GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = store.Users().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryIssuesListOrdersAndPaginates(t *testing.T) {
	store := NewMemoryStore()
	owner := seedUser(t, store, "owner@example.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedIssue(t, store, owner.ID, fmt.Sprintf("issue-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	page, total, err := store.Issues().List(context.Background(), IssueFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "issue-4", page[0].Title)
	assert.Equal(t, "issue-3", page[1].Title)
	require.NotNil(t, page[0].Creator)
	assert.Equal(t, "owner@example.com", page[0].Creator.Email)

	page, total, err = store.Issues().List(context.Background(), IssueFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 1)
	assert.Equal(t, "issue-0", page[0].Title)

	page, _, err = store.Issues().List(context.Background(), IssueFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryIssuesUpdateDeleteAndStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedUser(t, store, "owner@example.com")
	issue := seedIssue(t, store, owner.ID, "first", time.Now())
	seedIssue(t, store, owner.ID, "second", time.Now())

	issue.Status = domain.IssueStatusClosed
	require.NoError(t, store.Issues().Update(ctx, issue))

	stats, err := store.Issues().Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus[domain.IssueStatusOpen])
	assert.EqualValues(t, 1, stats.ByStatus[domain.IssueStatusClosed])
	assert.EqualValues(t, 0, stats.ByStatus[domain.IssueStatusResolved])
	assert.EqualValues(t, 2, stats.BySeverity[domain.IssueSeverityMinor])

	require.NoError(t, store.History().Create(ctx, &domain.IssueHistory{
		IssueID: issue.ID, Field: domain.IssueFieldStatus, OldValue: "Open", NewValue: "Closed", ChangedBy: owner.ID,
	}))
	entries, err := store.History().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.Issues().Delete(ctx, issue.ID))
	assert.ErrorIs(t, store.Issues().Delete(ctx, issue.ID), pgx.ErrNoRows)
	_, err = store.Issues().GetByID(ctx, issue.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.ErrorIs(t, store.Issues().Update(ctx, issue), pgx.ErrNoRows)

	entries, err = store.History().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
