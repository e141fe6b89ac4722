package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// IssueHistoryRepository stores audit entries.
type IssueHistoryRepository interface {
	Create(ctx context.Context, history *domain.IssueHistory) error
	ListByIssue(ctx context.Context, issueID string) ([]domain.IssueHistory, error)
}

type issueHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewIssueHistoryRepository builds repository.
func NewIssueHistoryRepository(pool *pgxpool.Pool) IssueHistoryRepository {
	return &issueHistoryRepository{pool: pool}
}

func (r *issueHistoryRepository) Create(ctx context.Context, history *domain.IssueHistory) error {
	const query = `
        INSERT INTO issue_history (issue_id, field, old_value, new_value, changed_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id::text`
	return r.pool.QueryRow(ctx, query,
		history.IssueID,
		history.Field,
		history.OldValue,
		history.NewValue,
		history.ChangedBy,
		history.CreatedAt,
	).Scan(&history.ID)
}

func (r *issueHistoryRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.IssueHistory, error) {
	const query = `
        SELECT id::text, issue_id::text, field, old_value, new_value, changed_by::text, created_at
        FROM issue_history WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.IssueHistory{}
	for rows.Next() {
		var history domain.IssueHistory
		if err := rows.Scan(
			&history.ID,
			&history.IssueID,
			&history.Field,
			&history.OldValue,
			&history.NewValue,
			&history.ChangedBy,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
