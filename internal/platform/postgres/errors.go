package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"

	"kudose/pkg/platform/sentinel"
)

const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeSerialization       pq.ErrorCode = "40001"
	codeDeadlock            pq.ErrorCode = "40P01"
	codeAdminShutdown       pq.ErrorCode = "57P01"
	codeCannotConnectNow    pq.ErrorCode = "57P03"
)

// IsUniqueViolation reports whether err is a unique violation of constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}

// IsTransient reports whether err is a connection-level or contention
// failure that may succeed when retried.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerialization, codeDeadlock, codeAdminShutdown, codeCannotConnectNow:
			return true
		}
		// 08xxx connection exception, 53xxx insufficient resources
		return strings.HasPrefix(string(pqErr.Code), "08") || strings.HasPrefix(string(pqErr.Code), "53")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Wrap annotates err with op and marks transient failures with
// sentinel.ErrUnavailable so services can retry them.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
