package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingSubscriber struct{ calls int }

func (c *countingSubscriber) RegisterHandlers() { c.calls++ }

func TestStartEventWorkersSkipsNil(t *testing.T) {
	a, b := &countingSubscriber{}, &countingSubscriber{}
	StartEventWorkers(zap.NewNop(), a, nil, b)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
