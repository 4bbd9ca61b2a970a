// Package seating holds the seating-chart core: the display/logical coordinate
// mapping, the authoritative seat matrix, lock and disable constraints, the
// auto-arrangement strategies and the snapshot format. Everything here is
// synchronous and single-session; callers serialize access to a Session.
package seating

import "errors"

var (
	ErrInvalidDimensions = errors.New("dimensions must be between 1 and 15")
	ErrInvalidIndex      = errors.New("seat index out of range")
	ErrSeatLocked        = errors.New("seat is locked")
	ErrSeatDisabled      = errors.New("seat is disabled")
	ErrSeatEmpty         = errors.New("seat is empty")
	ErrAlreadySeated     = errors.New("student is already seated")
	ErrUnknownStudent    = errors.New("student not in roster")
	ErrEmptyRoster       = errors.New("roster is empty")
	ErrCapacityExceeded  = errors.New("roster exceeds available seats")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrInvalidMode       = errors.New("unknown arrangement mode")

	// ErrArrangementCancelled is returned when the caller declines to proceed
	// after seeing gender conflicts. It is a cancellation, not a failure.
	ErrArrangementCancelled = errors.New("arrangement cancelled")
)

// IsWarning reports whether err is one of the recoverable conditions a UI
// shows as a warning rather than an error.
func IsWarning(err error) bool {
	return errors.Is(err, ErrSeatLocked) ||
		errors.Is(err, ErrSeatDisabled) ||
		errors.Is(err, ErrSeatEmpty) ||
		errors.Is(err, ErrAlreadySeated)
}
