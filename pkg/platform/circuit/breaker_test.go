package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome bool

const (
	fail outcome = false
	ok   outcome = true
)

func record(b *Breaker, outcomes ...outcome) (bool, StateChange) {
	var use bool
	var change StateChange
	for _, o := range outcomes {
		if o == ok {
			use, change = b.RecordSuccess()
		} else {
			use, change = b.RecordFailure()
		}
	}
	return use, change
}

func TestNewBreakerIsClosed(t *testing.T) {
	b := New("ratelimit-redis")
	assert.Equal(t, "ratelimit-redis", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.False(t, b.IsOpen())
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		outcomes   []outcome
		wantOpen   bool
		wantUse    bool
		wantChange StateChange
	}{
		{
			name:     "failures below threshold keep primary",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []outcome{fail, fail},
			wantOpen: false,
			wantUse:  false,
		},
		{
			name:       "threshold failure opens",
			opts:       []Option{WithFailureThreshold(3)},
			outcomes:   []outcome{fail, fail, fail},
			wantOpen:   true,
			wantUse:    true,
			wantChange: StateChange{Opened: true},
		},
		{
			name:     "failure while open reports no transition",
			opts:     []Option{WithFailureThreshold(1)},
			outcomes: []outcome{fail, fail},
			wantOpen: true,
			wantUse:  true,
		},
		{
			name:     "success clears the failure streak",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []outcome{fail, fail, ok, fail, fail},
			wantOpen: false,
			wantUse:  false,
		},
		{
			name:     "open breaker needs consecutive successes",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes: []outcome{fail, ok},
			wantOpen: true,
			wantUse:  false,
		},
		{
			name:       "success threshold closes",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes:   []outcome{fail, ok, ok},
			wantOpen:   false,
			wantUse:    true,
			wantChange: StateChange{Closed: true},
		},
		{
			name:     "failure restarts the probe count",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			outcomes: []outcome{fail, ok, ok, fail, ok, ok},
			wantOpen: true,
			wantUse:  false,
		},
		{
			name:     "non-positive thresholds fall back to defaults",
			opts:     []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			outcomes: []outcome{fail, fail, fail, fail},
			wantOpen: false,
			wantUse:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("redis", tt.opts...)
			use, change := record(b, tt.outcomes...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantUse, use)
			assert.Equal(t, tt.wantChange, change)
		})
	}
}

func TestResetClosesOpenBreaker(t *testing.T) {
	b := New("redis", WithFailureThreshold(1))
	record(b, fail)
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	// the failure streak is cleared too
	_, change := record(b, fail)
	assert.True(t, change.Opened)
}

func TestConcurrentFailuresOpenOnce(t *testing.T) {
	b := New("redis", WithFailureThreshold(5))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, "open", b.State().String())
}
