package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnumsRejectUnknownValues(t *testing.T) {
	status, err := ParseIssueStatus("In Progress")
	require.NoError(t, err)
	assert.Equal(t, IssueStatusInProgress, status)

	for _, bad := range []string{"", "open", "OPEN", "Done", "In  Progress"} {
		_, err := ParseIssueStatus(bad)
		assert.Error(t, err, bad)
	}

	_, err = ParseIssuePriority("Urgent")
	assert.Error(t, err)
	_, err = ParseIssueSeverity("minor")
	assert.Error(t, err)

	sev, err := ParseIssueSeverity("Critical")
	require.NoError(t, err)
	assert.Equal(t, IssueSeverityCritical, sev)
}

func TestNewIssueStatsHasEveryBucket(t *testing.T) {
	stats := NewIssueStats()
	assert.Zero(t, stats.Total)
	assert.Len(t, stats.ByStatus, 4)
	assert.Len(t, stats.ByPriority, 3)
	assert.Len(t, stats.BySeverity, 3)
	for _, s := range IssueStatuses {
		v, ok := stats.ByStatus[s]
		assert.True(t, ok, s)
		assert.Zero(t, v)
	}

	stats.Add(IssueStatusClosed, IssuePriorityHigh, IssueSeverityMajor, 3)
	stats.Add(IssueStatusOpen, IssuePriorityHigh, IssueSeverityMinor, 2)
	assert.EqualValues(t, 5, stats.Total)
	assert.EqualValues(t, 3, stats.ByStatus[IssueStatusClosed])
	assert.EqualValues(t, 5, stats.ByPriority[IssuePriorityHigh])
	assert.EqualValues(t, 0, stats.ByPriority[IssuePriorityLow])
}
