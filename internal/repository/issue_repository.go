package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	// List returns one page of matching issues, newest first, and the total match count.
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int64, error)
	Stats(ctx context.Context) (*domain.IssueStats, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `i.id::text, i.title, i.description, i.status, i.priority, i.severity,
               i.created_by::text, i.created_at, i.updated_at,
               u.id::text, u.email, u.name`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (id, title, description, status, priority, severity, created_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		issue.ID,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.Priority,
		issue.Severity,
		issue.CreatedBy,
		issue.CreatedAt,
		issue.UpdatedAt,
	)
	return err
}

func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	const query = `
        UPDATE issues SET title=$1, description=$2, status=$3, priority=$4, severity=$5, updated_at=$6
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.Priority,
		issue.Severity,
		issue.UpdatedAt,
		issue.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + `
        FROM issues i LEFT JOIN users u ON u.id = i.created_by
        WHERE i.id=$1`
	issue, err := scanIssue(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int64, error) {
	filter = filter.normalize()
	where, args := buildIssueWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM issues i WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s
        FROM issues i LEFT JOIN users u ON u.id = i.created_by
        WHERE %s
        ORDER BY i.created_at DESC, i.id DESC
        LIMIT $%d OFFSET $%d`, issueColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	issues := make([]domain.Issue, 0, filter.Limit)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		issues = append(issues, *issue)
	}
	return issues, total, rows.Err()
}

func (r *issueRepository) Stats(ctx context.Context) (*domain.IssueStats, error) {
	const query = `
        SELECT status, priority, severity, COUNT(*)
        FROM issues
        GROUP BY status, priority, severity`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := domain.NewIssueStats()
	for rows.Next() {
		var (
			status   domain.IssueStatus
			priority domain.IssuePriority
			severity domain.IssueSeverity
			count    int64
		)
		if err := rows.Scan(&status, &priority, &severity, &count); err != nil {
			return nil, err
		}
		stats.Add(status, priority, severity, count)
	}
	return stats, rows.Err()
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	var creatorID, creatorEmail, creatorName *string
	if err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Status,
		&issue.Priority,
		&issue.Severity,
		&issue.CreatedBy,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&creatorID,
		&creatorEmail,
		&creatorName,
	); err != nil {
		return nil, err
	}
	if creatorID != nil {
		issue.Creator = &domain.UserSummary{ID: *creatorID}
		if creatorEmail != nil {
			issue.Creator.Email = *creatorEmail
		}
		if creatorName != nil {
			issue.Creator.Name = *creatorName
		}
	}
	return &issue, nil
}
