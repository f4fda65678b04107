package model

import (
	"context"
	"time"
)

// Sink receives structured notification events. The transport layer renders
// them as user-facing text; the engine never formats prose.
type Sink interface {
	Notify(ctx context.Context, ev Event)
}

// Event is implemented by every notification the engine emits.
type Event interface {
	EventKind() string
}

// LevelChanged reports a level transition after a ledger update.
type LevelChanged struct {
	EventID  string
	ActorID  int64
	OldLevel int
	NewLevel int
}

func (LevelChanged) EventKind() string { return "level_changed" }

// ViolationDetected reports a content or command-issued violation together
// with the actor's running warn count.
type ViolationDetected struct {
	EventID string
	ActorID int64
	Reason  string
	Count   int
	Limit   int
}

func (ViolationDetected) EventKind() string { return "violation_detected" }

// RestrictActor directs the transport to apply a timed restriction. Emitted
// when the flood scorer mutes or the warn limit is reached.
type RestrictActor struct {
	EventID  string
	ActorID  int64
	Reason   string
	Duration time.Duration
}

func (RestrictActor) EventKind() string { return "restrict_actor" }

// WagerResolved reports a finished chance game after the reveal delay.
type WagerResolved struct {
	EventID    string
	ActorID    int64
	Game       string
	Stake      int64
	Roll       int
	Multiplier int
	Payout     int64 // stake * multiplier, 0 on a loss
	OldLevel   int
	NewLevel   int
}

func (WagerResolved) EventKind() string { return "wager_resolved" }

// DuelResolved reports the outcome of a duel. On a tie Winner and Loser are
// both zero and no XP moved.
type DuelResolved struct {
	EventID string
	Winner  int64
	Loser   int64
	Stake   int64
	Tie     bool
}

func (DuelResolved) EventKind() string { return "duel_resolved" }

// ReputationGranted reports a successful peer endorsement.
type ReputationGranted struct {
	EventID    string
	FromID     int64
	ToID       int64
	Reputation int // target's new reputation score
}

func (ReputationGranted) EventKind() string { return "reputation_granted" }
