package service

import (
	"context"

	"github.com/spec-kit/issue-tracker/internal/events"
)

// StatsInvalidator drops cached stats whenever an issue changes.
type StatsInvalidator struct {
	dispatcher events.Dispatcher
	cache      StatsCache
}

// NewStatsInvalidator binds cache to the dispatcher's issue events.
func NewStatsInvalidator(dispatcher events.Dispatcher, cache StatsCache) *StatsInvalidator {
	return &StatsInvalidator{dispatcher: dispatcher, cache: cache}
}

// RegisterHandlers subscribes to events.
func (i *StatsInvalidator) RegisterHandlers() {
	if i.dispatcher == nil || i.cache == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventIssueCreated,
		events.EventIssueUpdated,
		events.EventIssueDeleted,
	} {
		i.dispatcher.Subscribe(eventType, i.invalidate)
	}
}

func (i *StatsInvalidator) invalidate(ctx context.Context, _ events.Event) error {
	return i.cache.Invalidate(ctx)
}
