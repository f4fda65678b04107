package repository

import "errors"

// Sentinel kinds for store lookups.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownList = errors.New("unknown list kind")
)
