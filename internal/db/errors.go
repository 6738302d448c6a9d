package db

import "errors"

// Sentinel errors returned by Repository operations. Handlers map these to
// HTTP statuses; none of them leave partial state behind.
var (
	// ErrNotFound means a referenced user, blip, or report does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was rejected before any write.
	ErrValidation = errors.New("invalid input")

	// ErrForbidden means the acting user is banned or lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrReportResolved means the report already left the pending state.
	ErrReportResolved = errors.New("report already resolved")

	// ErrConflict means a concurrent write tripped the storage uniqueness
	// backstop. The reaction upsert is idempotent, so callers may retry.
	ErrConflict = errors.New("conflict")
)
