package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// MemoryStore keeps users, issues and history in process memory.
// It backs local runs without POSTGRES_DSN and the service tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	emails  map[string]string
	issues  map[string]domain.Issue
	history map[string][]domain.IssueHistory
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		emails:  make(map[string]string),
		issues:  make(map[string]domain.Issue),
		history: make(map[string][]domain.IssueHistory),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Issues exposes the store as an IssueRepository.
func (s *MemoryStore) Issues() IssueRepository { return memoryIssues{s} }

// History exposes the store as an IssueHistoryRepository.
func (s *MemoryStore) History() IssueHistoryRepository { return memoryHistory{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.emails[user.Email]; exists {
		return ErrEmailTaken
	}
	now := m.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.s.users[user.ID] = *user
	m.s.emails[user.Email] = user.ID
	return nil
}

func (m memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	user, ok := m.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	id, ok := m.s.emails[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := m.s.users[id]
	return &user, nil
}

type memoryIssues struct{ s *MemoryStore }

func (m memoryIssues) Create(_ context.Context, issue *domain.Issue) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	stored := *issue
	stored.Creator = nil
	m.s.issues[issue.ID] = stored
	return nil
}

func (m memoryIssues) Update(_ context.Context, issue *domain.Issue) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	current, ok := m.s.issues[issue.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	current.Title = issue.Title
	current.Description = issue.Description
	current.Status = issue.Status
	current.Priority = issue.Priority
	current.Severity = issue.Severity
	current.UpdatedAt = issue.UpdatedAt
	m.s.issues[issue.ID] = current
	return nil
}

func (m memoryIssues) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.issues[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.s.issues, id)
	delete(m.s.history, id)
	return nil
}

func (m memoryIssues) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	issue, ok := m.s.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return m.withCreator(issue), nil
}

func (m memoryIssues) List(_ context.Context, filter IssueFilter) ([]domain.Issue, int64, error) {
	filter = filter.normalize()

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := make([]domain.Issue, 0)
	for _, issue := range m.s.issues {
		if filter.matches(&issue) {
			matched = append(matched, issue)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []domain.Issue{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]domain.Issue, 0, end-filter.Offset)
	for _, issue := range matched[filter.Offset:end] {
		page = append(page, *m.withCreator(issue))
	}
	return page, total, nil
}

func (m memoryIssues) Stats(_ context.Context) (*domain.IssueStats, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	stats := domain.NewIssueStats()
	for _, issue := range m.s.issues {
		stats.Add(issue.Status, issue.Priority, issue.Severity, 1)
	}
	return stats, nil
}

// withCreator mirrors the users join; callers must hold the read lock.
func (m memoryIssues) withCreator(issue domain.Issue) *domain.Issue {
	if user, ok := m.s.users[issue.CreatedBy]; ok {
		summary := user.Summary()
		issue.Creator = &summary
	}
	return &issue
}

type memoryHistory struct{ s *MemoryStore }

func (m memoryHistory) Create(_ context.Context, history *domain.IssueHistory) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.issues[history.IssueID]; !ok {
		return pgx.ErrNoRows
	}
	history.ID = uuid.NewString()
	m.s.history[history.IssueID] = append(m.s.history[history.IssueID], *history)
	return nil
}

func (m memoryHistory) ListByIssue(_ context.Context, issueID string) ([]domain.IssueHistory, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	entries := m.s.history[issueID]
	result := make([]domain.IssueHistory, len(entries))
	copy(result, entries)
	return result, nil
}
