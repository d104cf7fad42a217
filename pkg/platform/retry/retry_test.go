package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kudose/pkg/domain-errors"
	"kudose/pkg/platform/sentinel"
)

var fast = Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestDo(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		notified := 0
		err := Do(context.Background(), fast, func(error, time.Duration) { notified++ }, func(context.Context) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("select profile: %w", sentinel.ErrUnavailable)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, notified)
	})

	t.Run("surfaces unavailable after exhausting attempts", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fast, nil, func(context.Context) error {
			calls++
			return sentinel.ErrUnavailable
		})
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, 3, calls)
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		calls := 0
		want := dErrors.New(dErrors.CodeHandleTaken, "handle is taken")
		err := Do(context.Background(), fast, nil, func(context.Context) error {
			calls++
			return want
		})
		require.Equal(t, want, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("no retry policy runs once", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), NoRetry, nil, func(context.Context) error {
			calls++
			return sentinel.ErrUnavailable
		})
		require.True(t, errors.Is(err, sentinel.ErrUnavailable))
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Do(ctx, Policy{MaxAttempts: 10, InitialInterval: 10 * time.Millisecond}, nil, func(context.Context) error {
			calls++
			cancel()
			return sentinel.ErrUnavailable
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestDoValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), fast, nil, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", sentinel.ErrUnavailable
		}
		return "neon_fox", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "neon_fox", v)
}
