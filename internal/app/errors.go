package app

import "errors"

var (
	// ErrPermissionDenied is returned when the acting rank does not cover
	// the requested operation or target.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLevelTooLow is returned when an operation is gated on the
	// gamified level and the actor has not reached it.
	ErrLevelTooLow = errors.New("level too low")

	// ErrInvalidRank is returned when a rank assignment is outside the
	// known rank range.
	ErrInvalidRank = errors.New("invalid rank")
)
