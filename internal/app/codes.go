package app

import (
	"errors"

	"github.com/chatkeeper/keeper/internal/adapters/repository"
	"github.com/chatkeeper/keeper/internal/domain/games/duel"
	"github.com/chatkeeper/keeper/internal/domain/games/wager"
	"github.com/chatkeeper/keeper/internal/domain/progression"
	"github.com/chatkeeper/keeper/internal/domain/reputation"
)

// Code is the stable error classification handed to callers for user
// messaging. Every operation error maps to exactly one code.
type Code string

const (
	CodeOK                  Code = "OK"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeExternalUnavailable Code = "EXTERNAL_UNAVAILABLE"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
)

// CodeOf classifies an operation error. Errors with no known sentinel in
// their chain come from the backing store or another external resource.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK

	case errors.Is(err, progression.ErrInsufficientFunds):
		return CodeInsufficientFunds

	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, duel.ErrNoSession):
		return CodeNotFound

	case errors.Is(err, duel.ErrInvalidState),
		errors.Is(err, duel.ErrTacticChosen),
		errors.Is(err, reputation.ErrWipeUsed),
		errors.Is(err, reputation.ErrDailyLimit),
		errors.Is(err, reputation.ErrTargetDailyLimit):
		return CodeInvalidState

	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrLevelTooLow),
		errors.Is(err, wager.ErrLevelTooLow),
		errors.Is(err, duel.ErrLevelTooLow),
		errors.Is(err, duel.ErrNotParticipant):
		return CodePermissionDenied

	case errors.Is(err, ErrInvalidRank),
		errors.Is(err, wager.ErrUnknownGame),
		errors.Is(err, wager.ErrInvalidStake),
		errors.Is(err, duel.ErrUnknownTactic),
		errors.Is(err, duel.ErrStakeTooLow),
		errors.Is(err, duel.ErrSelfDuel),
		errors.Is(err, reputation.ErrSelfGrant),
		errors.Is(err, progression.ErrInvalidDelta),
		errors.Is(err, repository.ErrUnknownList):
		return CodeInvalidArgument

	default:
		return CodeExternalUnavailable
	}
}
