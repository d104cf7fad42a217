package models

import (
	"strings"
	"time"

	id "kudose/pkg/domain"
)

// Action names a rate-limited self-service write.
type Action string

const (
	ActionHandleConfirm Action = "handle_confirm"
	ActionSellerApply   Action = "seller_apply"
)

// Limit is a fixed-window budget: Requests per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

func (l Limit) Enabled() bool {
	return l.Requests > 0 && l.Window > 0
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Degraded   bool      `json:"-"`                     // answered by the in-memory fallback
}

// NewPrincipalKey builds the counter key for principalID performing action.
// ':' is reserved as the segment separator, so it is replaced in the action.
func NewPrincipalKey(action Action, principalID id.PrincipalID) string {
	return "rl:" + strings.ReplaceAll(string(action), ":", "_") + ":" + principalID.String()
}

// WindowStart truncates now to the start of its fixed window.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// NewResult computes the result for count requests observed in the window
// beginning at start.
func NewResult(count int, limit Limit, start, now time.Time) *RateLimitResult {
	resetAt := start.Add(limit.Window)
	r := &RateLimitResult{
		Allowed: count <= limit.Requests,
		Limit:   limit.Requests,
		ResetAt: resetAt,
	}
	if r.Allowed {
		r.Remaining = limit.Requests - count
		return r
	}
	r.RetryAfter = int(resetAt.Sub(now).Round(time.Second) / time.Second)
	if r.RetryAfter < 1 {
		r.RetryAfter = 1
	}
	return r
}
