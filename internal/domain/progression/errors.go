package progression

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrInsufficientFunds = errors.New("insufficient xp")
	ErrInvalidDelta      = errors.New("invalid delta")
)
