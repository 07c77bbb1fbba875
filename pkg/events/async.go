package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/pkg/jobs"
)

const jobType = "publish_event"

// AsyncPublisher hands events to a job queue so request handlers never wait on the broker.
// Failed deliveries are retried by the queue.
type AsyncPublisher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsyncPublisher builds the queue around the downstream publisher. Call Start before use.
func NewAsyncPublisher(downstream Publisher, cfg jobs.QueueConfig) *AsyncPublisher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		evt, ok := job.Payload.(Event)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		return downstream.Publish(ctx, evt)
	}
	return &AsyncPublisher{
		queue:  jobs.NewQueue("events", handler, cfg),
		logger: cfg.Logger,
	}
}

// Start launches the workers.
func (p *AsyncPublisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop drains pending events and stops the workers.
func (p *AsyncPublisher) Stop() {
	p.queue.Stop()
}

// Publish enqueues every event; enqueue failures are logged and reported.
func (p *AsyncPublisher) Publish(_ context.Context, events ...Event) error {
	var firstErr error
	for _, evt := range events {
		if err := p.queue.Enqueue(jobs.Job{ID: evt.ID, Type: jobType, Payload: evt}); err != nil {
			p.logger.Warn("drop event", zap.String("event_id", evt.ID), zap.String("type", evt.Type), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
