// Package store persists seller applications. Both implementations return:
//   - ErrNotFound for an unknown application (or, on Create, an unknown owner)
//   - ErrPendingExists when the owner already has a pending application
//   - ErrInvalidState when a decision targets a non-pending application
//   - ErrUnavailable (postgres only) for transient failures worth retrying
package store

import (
	"fmt"

	"kudose/pkg/platform/sentinel"
)

// ErrPendingExists marks an insert rejected by the one-pending-per-principal index.
var ErrPendingExists = fmt.Errorf("pending application exists: %w", sentinel.ErrConflict)
