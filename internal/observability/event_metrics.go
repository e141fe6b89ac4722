package observability

import (
	"context"

	"github.com/spec-kit/issue-tracker/internal/events"
)

// EventMetrics counts issue lifecycle events as they are published.
type EventMetrics struct {
	dispatcher events.Dispatcher
	metrics    *Metrics
}

// NewEventMetrics binds metrics to dispatcher.
func NewEventMetrics(dispatcher events.Dispatcher, metrics *Metrics) *EventMetrics {
	return &EventMetrics{dispatcher: dispatcher, metrics: metrics}
}

// RegisterHandlers subscribes to events.
func (e *EventMetrics) RegisterHandlers() {
	if e.dispatcher == nil || e.metrics == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventIssueCreated,
		events.EventIssueUpdated,
		events.EventIssueDeleted,
	} {
		e.dispatcher.Subscribe(eventType, e.record)
	}
}

func (e *EventMetrics) record(_ context.Context, event events.Event) error {
	e.metrics.RecordIssueEvent(string(event.Type))
	return nil
}
