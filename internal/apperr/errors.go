package apperr

import "errors"

// Sentinel errors for the analytics core. Callers classify failures with
// errors.Is and map them to transport codes at the handler layer.
var (
	// ErrNotFound marks a lookup miss (goal, report, session, alert).
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a request rejected before any persistence
	// (unknown metric type, out-of-range value, malformed period).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData marks a computation that degraded to a
	// low-confidence result instead of failing; surfaced only when a
	// caller asks for a strict result.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConflict marks a concurrent recomputation collision on the same
	// (user, date) key; retried internally, not surfaced to callers.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable marks an unreachable backing store.
	ErrUnavailable = errors.New("unavailable")
)
