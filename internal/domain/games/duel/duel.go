// Package duel implements the two-party duel: challenge, accept, hidden
// tactic choice, and cyclic-dominance resolution with an XP transfer.
package duel

import "time"

// State tags a session's position in the machine. Resolved and Expired are
// terminal; the session is removed from the arena when it reaches them.
type State int

const (
	StateWaitingAccept State = iota
	StateFighting
	StateResolved
	StateExpired
)

// String returns the state label used in logs.
func (s State) String() string {
	switch s {
	case StateWaitingAccept:
		return "waiting_accept"
	case StateFighting:
		return "fighting"
	case StateResolved:
		return "resolved"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Tactic is a closed enumeration of the duel choices.
type Tactic int

const (
	TacticAttack Tactic = iota
	TacticDefend
	TacticTrick
)

// String returns the tactic label used in logs.
func (t Tactic) String() string {
	switch t {
	case TacticAttack:
		return "attack"
	case TacticDefend:
		return "defend"
	case TacticTrick:
		return "trick"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known tactics.
func (t Tactic) Valid() bool {
	return t >= TacticAttack && t <= TacticTrick
}

// Beats reports whether t wins against other: attack beats trick, trick
// beats defend, defend beats attack.
func (t Tactic) Beats(other Tactic) bool {
	switch t {
	case TacticAttack:
		return other == TacticTrick
	case TacticTrick:
		return other == TacticDefend
	case TacticDefend:
		return other == TacticAttack
	default:
		return false
	}
}

// Session is a read-only snapshot of a duel.
type Session struct {
	ID           string
	ContextID    int64
	ChallengerID int64
	TargetID     int64
	Stake        int64
	State        State
	CreatedAt    time.Time
}

// session is the arena's mutable record. Guarded by the per-context lock.
type session struct {
	Session
	challengerTactic Tactic
	targetTactic     Tactic
	challengerChose  bool
	targetChose      bool
}
