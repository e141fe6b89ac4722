package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/persistence"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeStatsCache struct {
	stats       *domain.IssueStats
	generation  int64
	gets        int
	invalidated int
}

func (f *fakeStatsCache) Get(context.Context) (*domain.IssueStats, int64, bool, error) {
	f.gets++
	return f.stats, f.generation, f.stats != nil, nil
}

func (f *fakeStatsCache) Set(_ context.Context, generation int64, stats *domain.IssueStats) error {
	if generation == f.generation {
		f.stats = stats
	}
	return nil
}

func (f *fakeStatsCache) Invalidate(context.Context) error {
	f.invalidated++
	f.generation++
	f.stats = nil
	return nil
}

type issueFixture struct {
	svc        *IssueService
	store      *repository.MemoryStore
	dispatcher events.Dispatcher
	cache      *fakeStatsCache
	owner      string
	other      string
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	cache := &fakeStatsCache{}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	NewStatsInvalidator(dispatcher, cache).RegisterHandlers()
	NewNotificationService(dispatcher, zap.NewNop()).RegisterHandlers()

	owner := &domain.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x"}
	other := &domain.User{Email: "other@example.com", Name: "Other", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(context.Background(), owner))
	require.NoError(t, store.Users().Create(context.Background(), other))

	svc := NewIssueService(IssueDependencies{
		IssueRepo:   store.Issues(),
		HistoryRepo: store.History(),
		Dispatcher:  dispatcher,
		Cache:       cache,
		Clock:       clock.Now,
	})
	return &issueFixture{svc: svc, store: store, dispatcher: dispatcher, cache: cache, owner: owner.ID, other: other.ID}
}

func strPtr(s string) *string { return &s }

func (f *issueFixture) create(t *testing.T, title, description string) *domain.Issue {
	t.Helper()
	issue, err := f.svc.Create(context.Background(), f.owner, CreateIssueInput{Title: title, Description: description})
	require.NoError(t, err)
	return issue
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newIssueFixture(t)
	issue := f.create(t, "Bug A", "crashes")

	assert.Equal(t, domain.IssueStatusOpen, issue.Status)
	assert.Equal(t, domain.IssuePriorityMedium, issue.Priority)
	assert.Equal(t, domain.IssueSeverityMinor, issue.Severity)
	assert.Equal(t, f.owner, issue.CreatedBy)
	require.NotNil(t, issue.Creator)
	assert.Equal(t, "owner@example.com", issue.Creator.Email)
	assert.Equal(t, issue.CreatedAt, issue.UpdatedAt)
}

func TestCreateValidation(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "  ", Description: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "x", Description: "\n\t"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "x", Description: "y", Priority: strPtr("Urgent")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "x", Description: "y", Severity: strPtr("minor")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	issue, err := f.svc.Create(ctx, f.owner, CreateIssueInput{
		Title: "x", Description: "y", Priority: strPtr("High"), Severity: strPtr("Critical"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IssuePriorityHigh, issue.Priority)
	assert.Equal(t, domain.IssueSeverityCritical, issue.Severity)
	assert.Equal(t, domain.IssueStatusOpen, issue.Status)
}

func TestGetByIDMalformedAndMissing(t *testing.T) {
	f := newIssueFixture(t)
	for _, id := range []string{"not-a-uuid", "", "00000000-0000-0000-0000-000000000000"} {
		_, err := f.svc.GetByID(context.Background(), id)
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound), "id=%q", id)
	}
}

func TestOwnershipScenario(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.create(t, "Bug A", "crashes")

	_, err := f.svc.Update(ctx, f.other, issue.ID, UpdateIssueInput{Status: strPtr("Closed")})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	err = f.svc.Delete(ctx, f.other, issue.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	unchanged, err := f.svc.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusOpen, unchanged.Status)
	assert.Equal(t, issue.UpdatedAt, unchanged.UpdatedAt)

	updated, err := f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{Status: strPtr("Closed")})
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusClosed, updated.Status)
	assert.Equal(t, "Bug A", updated.Title)
	assert.Equal(t, "crashes", updated.Description)
	assert.True(t, updated.UpdatedAt.After(issue.UpdatedAt))
	assert.Equal(t, issue.CreatedAt, updated.CreatedAt)
	assert.Equal(t, f.owner, updated.CreatedBy)

	// any status may follow any other
	reopened, err := f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{Status: strPtr("Open")})
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusOpen, reopened.Status)
}

func TestNonOwnerWriteAttemptsLeaveIssueUnchanged(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.create(t, "Stable", "do not touch")

	inputs := []UpdateIssueInput{
		{Title: strPtr("hijacked")},
		{Description: strPtr("changed")},
		{Priority: strPtr("High"), Severity: strPtr("Critical")},
		{Status: strPtr("bogus")},
		{},
	}
	for i, input := range inputs {
		_, err := f.svc.Update(ctx, f.other, issue.ID, input)
		assert.True(t, apperrors.Is(err, apperrors.CodeForbidden), "input %d", i)
	}

	current, err := f.svc.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.Title, current.Title)
	assert.Equal(t, issue.Description, current.Description)
	assert.Equal(t, issue.Priority, current.Priority)
	assert.Equal(t, issue.UpdatedAt, current.UpdatedAt)

	history, err := f.svc.History(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateValidationIsAtomic(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.create(t, "Title", "Body")

	_, err := f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{Title: strPtr("New"), Status: strPtr("Done")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{Title: strPtr("   ")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	current, err := f.svc.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title", current.Title)
}

func TestUpdateRecordsHistory(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.create(t, "Title", "Body")

	_, err := f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{
		Title:    strPtr("Title"),
		Priority: strPtr("High"),
		Status:   strPtr("In Progress"),
	})
	require.NoError(t, err)

	entries, err := f.svc.History(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.IssueFieldStatus, entries[0].Field)
	assert.Equal(t, "Open", entries[0].OldValue)
	assert.Equal(t, "In Progress", entries[0].NewValue)
	assert.Equal(t, domain.IssueFieldPriority, entries[1].Field)
	assert.Equal(t, f.owner, entries[1].ChangedBy)

	// an empty update still refreshes updatedAt without history
	before, err := f.svc.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	after, err := f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{})
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	entries, err = f.svc.History(ctx, issue.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDeleteSemantics(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := f.create(t, "Doomed", "soon gone")

	require.NoError(t, f.svc.Delete(ctx, f.owner, issue.ID))
	assert.True(t, apperrors.Is(f.svc.Delete(ctx, f.owner, issue.ID), apperrors.CodeNotFound))
	assert.True(t, apperrors.Is(f.svc.Delete(ctx, f.owner, "garbage"), apperrors.CodeNotFound))

	_, err := f.svc.GetByID(ctx, issue.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	_, err = f.svc.History(ctx, issue.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	// the owner account survives
	_, err = f.store.Users().GetByID(ctx, f.owner)
	assert.NoError(t, err)
}

func TestListPagination(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		f.create(t, fmt.Sprintf("issue %02d", i), "body")
	}

	page, err := f.svc.List(ctx, ListIssuesInput{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.EqualValues(t, 15, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	// newest first, so page two holds the oldest
	assert.Equal(t, "issue 04", page.Items[0].Title)
	assert.Equal(t, "issue 00", page.Items[4].Title)

	page, err = f.svc.List(ctx, ListIssuesInput{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, "issue 14", page.Items[0].Title)

	page, err = f.svc.List(ctx, ListIssuesInput{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.TotalPages)

	for _, in := range []ListIssuesInput{{Page: -1}, {Limit: -5}, {Limit: 101}, {Page: math.MaxInt, Limit: 2}, {Status: "Pending"}, {Priority: "low"}, {Severity: "Blocker"}} {
		_, err := f.svc.List(ctx, in)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "%+v", in)
	}
}

func TestListEmptyHasZeroPages(t *testing.T) {
	f := newIssueFixture(t)
	page, err := f.svc.List(context.Background(), ListIssuesInput{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.EqualValues(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
}

func TestListFiltersAndSearch(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	crash := f.create(t, "Startup", "App Crash on launch")
	f.create(t, "Typo", "wrong label")
	high, err := f.svc.Create(ctx, f.other, CreateIssueInput{Title: "CRASHING reports", Description: "n/a", Priority: strPtr("High")})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, ListIssuesInput{Search: "crash"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, high.ID, page.Items[0].ID)
	assert.Equal(t, crash.ID, page.Items[1].ID)

	page, err = f.svc.List(ctx, ListIssuesInput{Search: "crash", Priority: "High"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, high.ID, page.Items[0].ID)
	assert.Equal(t, "other@example.com", page.Items[0].Creator.Email)

	page, err = f.svc.List(ctx, ListIssuesInput{Status: "Open", Severity: "Minor"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	page, err = f.svc.List(ctx, ListIssuesInput{Search: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestStatsBucketsAndCache(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Total)
	assert.Equal(t, map[domain.IssueStatus]int64{
		domain.IssueStatusOpen:       0,
		domain.IssueStatusInProgress: 0,
		domain.IssueStatusResolved:   0,
		domain.IssueStatusClosed:     0,
	}, stats.ByStatus)
	assert.Len(t, stats.ByPriority, 3)
	assert.Len(t, stats.BySeverity, 3)
	require.NotNil(t, f.cache.stats)

	issue := f.create(t, "one", "two")
	assert.Equal(t, 1, f.cache.invalidated)
	assert.Nil(t, f.cache.stats)

	_, err = f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{Status: strPtr("Resolved")})
	require.NoError(t, err)
	f.create(t, "three", "four")

	stats, err = f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus[domain.IssueStatusOpen])
	assert.EqualValues(t, 1, stats.ByStatus[domain.IssueStatusResolved])
	assert.EqualValues(t, 0, stats.ByStatus[domain.IssueStatusClosed])
	assert.EqualValues(t, 2, stats.ByPriority[domain.IssuePriorityMedium])

	// served from cache until the next change
	cached, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Same(t, stats, cached)

	require.NoError(t, f.svc.Delete(ctx, f.owner, issue.ID))
	stats, err = f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Total)
}

// interleavedStatsRepo runs during once, right after the store has been read.
type interleavedStatsRepo struct {
	repository.IssueRepository
	during func()
}

func (r *interleavedStatsRepo) Stats(ctx context.Context) (*domain.IssueStats, error) {
	stats, err := r.IssueRepository.Stats(ctx)
	if during := r.during; during != nil {
		r.during = nil
		during()
	}
	return stats, err
}

func TestStatsNotCachedWhenIssueChangesMidRead(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := persistence.NewStatsCache(client, time.Minute)

	store := repository.NewMemoryStore()
	owner := &domain.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(ctx, owner))

	dispatcher := events.NewInMemoryDispatcher()
	NewStatsInvalidator(dispatcher, cache).RegisterHandlers()

	repo := &interleavedStatsRepo{IssueRepository: store.Issues()}
	svc := NewIssueService(IssueDependencies{
		IssueRepo:   repo,
		HistoryRepo: store.History(),
		Dispatcher:  dispatcher,
		Cache:       cache,
	})

	_, err := svc.Create(ctx, owner.ID, CreateIssueInput{Title: "first", Description: "body"})
	require.NoError(t, err)

	repo.during = func() {
		_, err := svc.Create(ctx, owner.ID, CreateIssueInput{Title: "second", Description: "body"})
		require.NoError(t, err)
	}
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Total)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)

	cached, _, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, hit)
	assert.EqualValues(t, 2, cached.Total)
}

func TestEventsPublished(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	var seen []events.Event
	for _, et := range []events.EventType{events.EventIssueCreated, events.EventIssueUpdated, events.EventIssueDeleted} {
		f.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			seen = append(seen, e)
			return nil
		})
	}

	issue := f.create(t, "evt", "body")
	_, err := f.svc.Update(ctx, f.owner, issue.ID, UpdateIssueInput{Severity: strPtr("Major")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.owner, issue.ID))

	require.Len(t, seen, 3)
	assert.Equal(t, events.EventIssueCreated, seen[0].Type)
	assert.Equal(t, events.EventIssueUpdated, seen[1].Type)
	assert.Equal(t, events.EventIssueDeleted, seen[2].Type)
	for _, e := range seen {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, issue.ID, e.IssueID)
		assert.Equal(t, f.owner, e.ActorID)
		assert.False(t, e.Timestamp.IsZero())
	}
	payload, ok := seen[1].Payload.(events.IssueUpdatedPayload)
	require.True(t, ok)
	require.Len(t, payload.Changes, 1)
	assert.Equal(t, domain.IssueFieldSeverity, payload.Changes[0].Field)
}
