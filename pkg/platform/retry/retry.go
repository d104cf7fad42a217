// Package retry re-runs store calls that failed with sentinel.ErrUnavailable
// using bounded exponential backoff. Any other error is returned on the first
// attempt.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"kudose/pkg/platform/sentinel"
)

// Policy bounds the retry loop. MaxAttempts counts the first call.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used when a service is built without an explicit policy.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

// NoRetry runs the operation exactly once.
var NoRetry = Policy{MaxAttempts: 1}

// Notify is called before each retry with the error that triggered it.
type Notify func(err error, wait time.Duration)

// Do runs fn until it succeeds, fails with a non-transient error, the policy
// is exhausted, or ctx is done. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, notify Notify, fn func(ctx context.Context) error) error {
	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, p.backOff(ctx), backoff.Notify(notify))
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, notify Notify, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, notify, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}
