package duel

import "errors"

// Sentinel kinds for duel rejections.
var (
	ErrNoSession      = errors.New("no live duel in context")
	ErrInvalidState   = errors.New("operation not legal in current state")
	ErrNotParticipant = errors.New("actor is not a duel participant")
	ErrTacticChosen   = errors.New("tactic already chosen")
	ErrSelfDuel       = errors.New("cannot duel yourself")
	ErrStakeTooLow    = errors.New("stake below minimum")
	ErrLevelTooLow    = errors.New("level too low")
	ErrUnknownTactic  = errors.New("unknown tactic")
)
