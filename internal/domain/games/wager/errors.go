package wager

import "errors"

// Sentinel kinds for wager rejections.
var (
	ErrUnknownGame  = errors.New("unknown game")
	ErrInvalidStake = errors.New("invalid stake")
	ErrLevelTooLow  = errors.New("level too low")
)
