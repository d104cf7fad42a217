// Package service decides whether a principal may perform a rate-limited
// action. Counters live in a shared store; while that store is failing the
// limiter degrades to process-local counters instead of letting traffic
// through unchecked.
package service

import (
	"context"
	"log/slog"

	"kudose/internal/ratelimit/metrics"
	"kudose/internal/ratelimit/models"
	id "kudose/pkg/domain"
	"kudose/pkg/platform/circuit"
)

type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

type Limiter struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limits   map[models.Action]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithFallback sets the store used while the primary store's breaker is open.
func WithFallback(store BucketStore, breaker *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.fallback = store
		l.breaker = breaker
	}
}

func WithLimit(action models.Action, limit models.Limit) Option {
	return func(l *Limiter) {
		l.limits[action] = limit
	}
}

func New(primary BucketStore, opts ...Option) *Limiter {
	l := &Limiter{
		primary: primary,
		limits:  make(map[models.Action]models.Limit),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback != nil && l.breaker == nil {
		l.breaker = circuit.New("ratelimit")
	}
	return l
}

// Check records one attempt of action by principalID. Actions without a
// configured limit are always allowed.
func (l *Limiter) Check(ctx context.Context, action models.Action, principalID id.PrincipalID) (*models.RateLimitResult, error) {
	limit, ok := l.limits[action]
	if !ok || !limit.Enabled() {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	key := models.NewPrincipalKey(action, principalID)

	result, err := l.allow(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	if l.metrics != nil {
		l.metrics.IncrementCheck(string(action), result.Allowed)
	}
	return result, nil
}

func (l *Limiter) allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	result, err := l.primary.Allow(ctx, key, limit)
	if l.fallback == nil {
		return result, err
	}

	if err != nil {
		if l.metrics != nil {
			l.metrics.IncrementStoreErrors()
		}
		_, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limit store failing, using in-memory fallback",
				"breaker", l.breaker.Name(),
				"error", err,
			)
			if l.metrics != nil {
				l.metrics.SetFallbackActive(true)
			}
		}
		return l.degraded(ctx, key, limit)
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limit store recovered", "breaker", l.breaker.Name())
		if l.metrics != nil {
			l.metrics.SetFallbackActive(false)
		}
	}
	if !usePrimary {
		return l.degraded(ctx, key, limit)
	}
	return result, nil
}

func (l *Limiter) degraded(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	result, err := l.fallback.Allow(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}
