package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/events"
)

// NotificationService logs a line for every issue lifecycle event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handle("IssueCreated"))
	n.dispatcher.Subscribe(events.EventIssueUpdated, n.handle("IssueUpdated"))
	n.dispatcher.Subscribe(events.EventIssueDeleted, n.handle("IssueDeleted"))
}

func (n *NotificationService) handle(name string) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("event_id", event.ID),
			zap.String("issue_id", event.IssueID),
			zap.String("actor_id", event.ActorID),
			zap.Any("payload", event.Payload))
		return nil
	}
}
