package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventIssueCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.IssueID)
		return boom
	})
	d.Subscribe(EventIssueCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.IssueID)
		return nil
	})
	d.Subscribe(EventIssueDeleted, func(context.Context, Event) error {
		calls = append(calls, "deleted")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventIssueCreated, IssueID: "i-1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:i-1", "second:i-1"}, calls)
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventIssueUpdated}))
}
