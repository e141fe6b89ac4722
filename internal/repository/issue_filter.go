package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// IssueFilter captures listing parameters. Nil/empty fields do not constrain.
type IssueFilter struct {
	Status   *domain.IssueStatus
	Priority *domain.IssuePriority
	Severity *domain.IssueSeverity
	Search   string
	Limit    int
	Offset   int
}

const (
	defaultIssueLimit = 10
	maxIssueLimit     = 100
)

// normalize clamps paging values to the accepted range.
func (f IssueFilter) normalize() IssueFilter {
	if f.Limit <= 0 {
		f.Limit = defaultIssueLimit
	}
	if f.Limit > maxIssueLimit {
		f.Limit = maxIssueLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// matches applies the filter to a single issue; mirrors buildIssueWhere.
func (f IssueFilter) matches(issue *domain.Issue) bool {
	if f.Status != nil && issue.Status != *f.Status {
		return false
	}
	if f.Priority != nil && issue.Priority != *f.Priority {
		return false
	}
	if f.Severity != nil && issue.Severity != *f.Severity {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), needle) &&
			!strings.Contains(strings.ToLower(issue.Description), needle) {
			return false
		}
	}
	return true
}

// buildIssueWhere renders the WHERE clause and positional args for filter.
// The search term is a literal substring; LIKE wildcards in it are escaped.
func buildIssueWhere(filter IssueFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("i.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("i.priority=$%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, string(*filter.Severity))
		clauses = append(clauses, fmt.Sprintf("i.severity=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(i.title ILIKE %s ESCAPE '\' OR i.description ILIKE %s ESCAPE '\')`, placeholder, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
