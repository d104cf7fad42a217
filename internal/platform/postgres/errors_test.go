package postgres

import (
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"kudose/pkg/platform/sentinel"
)

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "profiles_handle_key"}

	assert.True(t, IsUniqueViolation(err, "profiles_handle_key"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "profiles_pkey"))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}

func TestWrap(t *testing.T) {
	t.Run("transient errors become unavailable", func(t *testing.T) {
		for _, cause := range []error{
			driver.ErrBadConn,
			&pq.Error{Code: "08006"},
			&pq.Error{Code: "40001"},
			&pq.Error{Code: "53300"},
		} {
			err := Wrap(cause, "select profile")
			assert.ErrorIs(t, err, sentinel.ErrUnavailable, "%v", cause)
			assert.ErrorIs(t, err, cause)
		}
	})

	t.Run("constraint errors keep their identity", func(t *testing.T) {
		cause := &pq.Error{Code: "23505"}
		err := Wrap(cause, "insert profile")
		assert.False(t, errors.Is(err, sentinel.ErrUnavailable))
		assert.True(t, IsUniqueViolation(err, ""))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "noop"))
	})
}
