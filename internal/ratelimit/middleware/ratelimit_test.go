package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kudose/internal/ratelimit/models"
	id "kudose/pkg/domain"
	"kudose/pkg/testutil"
)

type stubLimiter struct {
	result *models.RateLimitResult
	err    error
	calls  int
}

func (s *stubLimiter) Check(context.Context, models.Action, id.PrincipalID) (*models.RateLimitResult, error) {
	s.calls++
	return s.result, s.err
}

func serve(t *testing.T, limiter RateLimiter, req *http.Request, opts ...Option) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})
	mw := New(limiter, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	rec := httptest.NewRecorder()
	mw.RateLimitPrincipal(models.ActionHandleConfirm)(next).ServeHTTP(rec, req)
	return rec, reached
}

func authed() *http.Request {
	return testutil.WithPrincipal(httptest.NewRequest(http.MethodPost, "/v1/me/handle", nil), uuid.NewString(), "")
}

func TestRateLimitPrincipal(t *testing.T) {
	reset := time.Now().Add(30 * time.Second)

	t.Run("allowed sets headers", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.RateLimitResult{Allowed: true, Limit: 5, Remaining: 4, ResetAt: reset}}
		rec, reached := serve(t, limiter, authed())
		assert.True(t, reached)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Empty(t, rec.Header().Get("X-RateLimit-Status"))
	})

	t.Run("denied is 429 rate_limited", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.RateLimitResult{Allowed: false, Limit: 5, ResetAt: reset, RetryAfter: 30, Degraded: true}}
		rec, reached := serve(t, limiter, authed())
		assert.False(t, reached)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
		assert.Equal(t, "degraded", rec.Header().Get("X-RateLimit-Status"))
		assert.Contains(t, rec.Body.String(), `"rate_limited"`)
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		rec, reached := serve(t, &stubLimiter{err: errors.New("boom")}, authed())
		assert.True(t, reached)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("anonymous skips the limiter", func(t *testing.T) {
		limiter := &stubLimiter{}
		_, reached := serve(t, limiter, httptest.NewRequest(http.MethodPost, "/v1/me/handle", nil))
		assert.True(t, reached)
		assert.Zero(t, limiter.calls)
	})

	t.Run("disabled", func(t *testing.T) {
		limiter := &stubLimiter{}
		_, reached := serve(t, limiter, authed(), WithDisabled(true))
		assert.True(t, reached)
		assert.Zero(t, limiter.calls)
	})
}
