// Package store persists profiles. Both implementations honor the same
// contract:
//   - ErrNotFound when the profile does not exist
//   - ErrHandleTaken when another profile already holds the handle
//   - ErrInvalidState when a handle confirmation loses the compare-and-swap
//   - ErrUnavailable (postgres only) for transient failures worth retrying
package store

import (
	"fmt"

	"kudose/pkg/platform/sentinel"
)

// ErrHandleTaken marks a write rejected by the unique handle index.
var ErrHandleTaken = fmt.Errorf("handle taken: %w", sentinel.ErrConflict)
