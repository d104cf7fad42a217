package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "kudose/pkg/domain"
)

func TestNewPrincipalKey(t *testing.T) {
	pid := id.PrincipalID(uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"))
	assert.Equal(t, "rl:handle_confirm:550e8400-e29b-41d4-a716-446655440000", NewPrincipalKey(ActionHandleConfirm, pid))
	assert.Equal(t, "rl:a_b:550e8400-e29b-41d4-a716-446655440000", NewPrincipalKey("a:b", pid))
}

func TestNewResult(t *testing.T) {
	limit := Limit{Requests: 2, Window: time.Minute}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(20 * time.Second)

	r := NewResult(2, limit, start, now)
	assert.True(t, r.Allowed)
	assert.Zero(t, r.Remaining)
	assert.Equal(t, start.Add(time.Minute), r.ResetAt)

	r = NewResult(3, limit, start, now)
	assert.False(t, r.Allowed)
	assert.Equal(t, 40, r.RetryAfter)
	assert.Equal(t, 2, r.Limit)
}

func TestLimitEnabled(t *testing.T) {
	assert.True(t, Limit{Requests: 1, Window: time.Second}.Enabled())
	assert.False(t, Limit{Requests: 0, Window: time.Second}.Enabled())
	assert.False(t, Limit{Requests: 1}.Enabled())
}
