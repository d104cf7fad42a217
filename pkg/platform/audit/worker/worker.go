// Package worker relays committed outbox rows to the audit topic.
package worker

import (
	"context"
	"log/slog"
	"time"

	audit "kudose/pkg/platform/audit"
)

// Outbox hands out undelivered entries and marks them published once
// deliver returns nil.
type Outbox interface {
	ClaimUnpublished(ctx context.Context, limit int, deliver func(ctx context.Context, entries []audit.OutboxEntry) error) (int, error)
}

// Sink delivers a batch of entries. It must not return before the batch is
// durably accepted.
type Sink interface {
	Deliver(ctx context.Context, entries []audit.OutboxEntry) error
}

// Observer receives relay outcomes; implemented by the platform metrics.
type Observer interface {
	Published(n int)
	Failed()
}

// Relay polls the outbox on an interval and drains it batch by batch.
type Relay struct {
	outbox    Outbox
	sink      Sink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	observer  Observer
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(r *Relay) { r.observer = o }
}

func New(outbox Outbox, sink Sink, interval time.Duration, batchSize int, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.batchSize <= 0 {
		r.batchSize = 100
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	return r
}

// Run drains the outbox until ctx is cancelled. Delivery failures are logged
// and retried on the next tick; rows stay unpublished until delivered.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain relays full batches until the outbox is empty or a batch fails.
func (r *Relay) Drain(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := r.outbox.ClaimUnpublished(ctx, r.batchSize, r.sink.Deliver)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
				if r.observer != nil {
					r.observer.Failed()
				}
			}
			return total
		}
		total += n
		if n > 0 && r.observer != nil {
			r.observer.Published(n)
		}
		if n < r.batchSize {
			return total
		}
	}
	return total
}
