package worker

import (
	"go.uber.org/zap"
)

// Subscriber attaches its event handlers to a dispatcher.
type Subscriber interface {
	RegisterHandlers()
}

// StartEventWorkers registers every subscriber's handlers. Nil subscribers are skipped.
func StartEventWorkers(logger *zap.Logger, subscribers ...Subscriber) {
	started := 0
	for _, sub := range subscribers {
		if sub == nil {
			continue
		}
		sub.RegisterHandlers()
		started++
	}
	logger.Info("event subscribers registered", zap.Int("count", started))
}
