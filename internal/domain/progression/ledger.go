package progression

import (
	"context"
	"fmt"

	"github.com/chatkeeper/keeper/internal/adapters/keylock"
	"github.com/chatkeeper/keeper/pkg/logger"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// Store is the slice of the actor store the ledger needs.
type Store interface {
	// Progress loads (xp, level) for an actor.
	Progress(ctx context.Context, actorID int64) (int64, int, error)
	// SetProgress persists (xp, level) for an actor.
	SetProgress(ctx context.Context, actorID int64, xp int64, level int) error
}

// Transition describes one ledger update: the level boundary crossing (if
// any) and the XP delta that caused it.
type Transition struct {
	ActorID  int64
	OldLevel int
	NewLevel int
	Delta    int64
	XP       int64 // xp within NewLevel after the update
}

// LeveledUp reports whether the update crossed a boundary upward.
func (t Transition) LeveledUp() bool { return t.NewLevel > t.OldLevel }

// LeveledDown reports whether the update crossed a boundary downward.
func (t Transition) LeveledDown() bool { return t.NewLevel < t.OldLevel }

// Ledger applies XP deltas with bidirectional cascading. All updates for one
// actor are serialized through a per-actor lock; two-actor transfers take
// both locks in ascending id order.
type Ledger struct {
	store  Store
	locks  *keylock.Striped
	logger logger.Logger
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLocks shares a lock table with other components keyed by actor id.
func WithLocks(l *keylock.Striped) Option {
	return func(ld *Ledger) {
		if l != nil {
			ld.locks = l
		}
	}
}

// WithLogger sets a custom logger for the ledger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Ledger) {
		if l != nil {
			ld.logger = l
		}
	}
}

// New constructs a Ledger on top of a store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		locks: keylock.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("progression")
	}
	return l
}

// cascade applies delta to (xp, level) and returns the landing point.
// Downward: while the running total is negative, drop a level and refund the
// capacity of the level landed on, clamping xp at 0 on the floor. Upward:
// while xp reaches the capacity, consume it and promote, stopping at the
// unbounded top tier.
func cascade(xp int64, level int, delta int64) (int64, int) {
	newXP := xp + delta

	for newXP < 0 {
		if level > MinLevel {
			level--
			newXP += Capacity(level)
		} else {
			newXP = 0
			break
		}
	}

	cap := Capacity(level)
	for newXP >= cap && level < MaxLevel {
		newXP -= cap
		level++
		cap = Capacity(level)
	}

	return newXP, level
}

// Update applies delta to the actor's XP, cascading across level boundaries
// in either direction, and persists the result.
func (l *Ledger) Update(ctx context.Context, actorID int64, delta int64) (Transition, error) {
	unlock := l.locks.Lock(actorID)
	defer unlock()
	return l.updateLocked(ctx, actorID, delta)
}

func (l *Ledger) updateLocked(ctx context.Context, actorID int64, delta int64) (Transition, error) {
	xp, level, err := l.store.Progress(ctx, actorID)
	if err != nil {
		return Transition{}, fmt.Errorf("load progress for %d: %w", actorID, err)
	}

	newXP, newLevel := cascade(xp, level, delta)

	if err := l.store.SetProgress(ctx, actorID, newXP, newLevel); err != nil {
		return Transition{}, fmt.Errorf("persist progress for %d: %w", actorID, err)
	}

	t := Transition{
		ActorID:  actorID,
		OldLevel: level,
		NewLevel: newLevel,
		Delta:    delta,
		XP:       newXP,
	}
	if t.LeveledUp() {
		metrics.RecordLevelUp()
	} else if t.LeveledDown() {
		metrics.RecordLevelDown()
	}
	return t, nil
}

// Debit atomically verifies affordability and applies -cost. It returns
// ErrInsufficientFunds without touching the store when the cost cannot be
// absorbed even by cascading down to the floor.
func (l *Ledger) Debit(ctx context.Context, actorID int64, cost int64) (Transition, error) {
	if cost <= 0 {
		return Transition{}, fmt.Errorf("debit of %d: %w", cost, ErrInvalidDelta)
	}
	unlock := l.locks.Lock(actorID)
	defer unlock()

	xp, level, err := l.store.Progress(ctx, actorID)
	if err != nil {
		return Transition{}, fmt.Errorf("load progress for %d: %w", actorID, err)
	}
	if !Affordable(xp, level, cost) {
		return Transition{}, ErrInsufficientFunds
	}
	return l.updateLocked(ctx, actorID, -cost)
}

// CanAfford loads the actor's progress and simulates the downward cascade.
func (l *Ledger) CanAfford(ctx context.Context, actorID int64, cost int64) (bool, error) {
	xp, level, err := l.store.Progress(ctx, actorID)
	if err != nil {
		return false, fmt.Errorf("load progress for %d: %w", actorID, err)
	}
	return Affordable(xp, level, cost), nil
}

// Transfer moves stake from loser to winner under both actor locks, taken in
// ascending id order. The winner is credited first; the loser's debit may
// cascade down levels and clamps at the floor, so neither side can fail once
// the transfer starts.
func (l *Ledger) Transfer(ctx context.Context, winnerID, loserID, stake int64) (Transition, Transition, error) {
	if stake <= 0 {
		return Transition{}, Transition{}, fmt.Errorf("transfer of %d: %w", stake, ErrInvalidDelta)
	}
	unlock := l.locks.LockPair(winnerID, loserID)
	defer unlock()

	win, err := l.updateLocked(ctx, winnerID, stake)
	if err != nil {
		return Transition{}, Transition{}, err
	}
	lose, err := l.updateLocked(ctx, loserID, -stake)
	if err != nil {
		return Transition{}, Transition{}, err
	}
	return win, lose, nil
}
