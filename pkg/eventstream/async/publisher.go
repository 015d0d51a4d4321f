// Package async publishes turn events through a worker pool so a slow
// broker never stalls the turn loop.
package async

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crosstalkco/crosstalk/pkg/eventstream"
	"github.com/crosstalkco/crosstalk/pkg/logger"
	"github.com/crosstalkco/crosstalk/pkg/worker"
)

// Publisher wraps an inner Publisher and hands PublishTurn calls to a
// worker pool. PublishTurn never blocks; a full queue drops the event.
type Publisher struct {
	inner eventstream.Publisher
	pool  *worker.Pool
	log   *slog.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

// Config is the configuration options for the async publisher.
type Config struct {
	// Inner performs the actual delivery.
	Inner eventstream.Publisher

	// NumWorkers and QueueSize are forwarded to the worker pool.
	NumWorkers uint
	QueueSize  uint

	// Logger receives drop and delivery failure messages.
	Logger *slog.Logger
}

// NewPublisher creates an async publisher and starts its pool workers.
func NewPublisher(c *Config) (*Publisher, error) {
	if c.Inner == nil {
		return nil, errors.New("async publisher requires an inner publisher")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	pool, err := worker.NewPool(&worker.Config{
		NumWorkers: c.NumWorkers,
		QueueSize:  c.QueueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	return &Publisher{inner: c.Inner, pool: pool, log: log}, nil
}

// PublishTurn queues the event for delivery and returns immediately.
// Deliveries run against the background context, so a turn that has
// already finished cannot cancel them. Delivery failures are logged,
// never returned.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	queued := p.pool.Submit(func() {
		if err := p.inner.PublishTurn(context.Background(), event); err != nil {
			p.log.Warn("publishing turn event",
				"event_id", event.EventID,
				"conversation", event.ConversationID,
				"error", err,
			)
		}
	})
	if !queued {
		p.log.Warn("turn event dropped, queue full",
			"event_id", event.EventID,
			"conversation", event.ConversationID,
		)
	}

	return nil
}

// Close drains the pool, then closes the inner publisher.
func (p *Publisher) Close() error {
	p.pool.Close()
	return p.inner.Close()
}
