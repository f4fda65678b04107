// Package reputation implements the daily-limited peer endorsement ledger
// and the once-a-day wipe allowance.
package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/chatkeeper/keeper/internal/adapters/keylock"
	"github.com/chatkeeper/keeper/internal/domain/model"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// Store is the slice of the actor store the ledger needs.
type Store interface {
	// ReputationGrantExists reports whether (from, to, dateKey) is recorded.
	ReputationGrantExists(ctx context.Context, fromID, toID int64, dateKey string) (bool, error)
	// ReputationGrantsOn counts the grants from one actor on a dateKey.
	ReputationGrantsOn(ctx context.Context, fromID int64, dateKey string) (int, error)
	// RecordReputationGrant records (from, to, dateKey) and bumps the
	// target's reputation score.
	RecordReputationGrant(ctx context.Context, fromID, toID int64, dateKey string) error
	// LastWipe returns the dateKey of the actor's last wipe, "" if never.
	LastWipe(ctx context.Context, actorID int64) (string, error)
	// SetLastWipe records the actor's wipe dateKey.
	SetLastWipe(ctx context.Context, actorID int64, dateKey string) error
}

// Ledger enforces the grant rules: no self-grant, one grant per target per
// day, at most dailyCap distinct grants per granter per day.
type Ledger struct {
	store    Store
	locks    *keylock.Striped
	dailyCap int
	now      func() time.Time
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithDailyCap sets the per-granter daily grant allowance.
func WithDailyCap(n int) Option {
	return func(l *Ledger) {
		if n >= 1 {
			l.dailyCap = n
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLocks shares a lock table with other components keyed by actor id.
func WithLocks(locks *keylock.Striped) Option {
	return func(l *Ledger) {
		if locks != nil {
			l.locks = locks
		}
	}
}

// New constructs a Ledger over a store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		locks:    keylock.New(),
		dailyCap: 3,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Grant records a reputation endorsement from one actor to another. The
// checks and the insert run under the granter's lock so two concurrent
// grants cannot both pass the daily cap.
func (l *Ledger) Grant(ctx context.Context, fromID, toID int64) error {
	if fromID == toID {
		metrics.RecordReputationDenial("self")
		return ErrSelfGrant
	}

	unlock := l.locks.Lock(fromID)
	defer unlock()

	dateKey := l.now().Format(model.DateKeyLayout)

	seen, err := l.store.ReputationGrantExists(ctx, fromID, toID, dateKey)
	if err != nil {
		return fmt.Errorf("check grant history: %w", err)
	}
	if seen {
		metrics.RecordReputationDenial("target_daily")
		return ErrTargetDailyLimit
	}

	count, err := l.store.ReputationGrantsOn(ctx, fromID, dateKey)
	if err != nil {
		return fmt.Errorf("count grants: %w", err)
	}
	if count >= l.dailyCap {
		metrics.RecordReputationDenial("daily_cap")
		return ErrDailyLimit
	}

	if err := l.store.RecordReputationGrant(ctx, fromID, toID, dateKey); err != nil {
		return fmt.Errorf("record grant: %w", err)
	}
	metrics.RecordReputationGrant()
	return nil
}

// ConsumeWipe claims the actor's daily wipe allowance. It returns
// ErrWipeUsed when the allowance was already spent today; on success the
// allowance is marked spent.
func (l *Ledger) ConsumeWipe(ctx context.Context, actorID int64) error {
	unlock := l.locks.Lock(actorID)
	defer unlock()

	dateKey := l.now().Format(model.DateKeyLayout)

	last, err := l.store.LastWipe(ctx, actorID)
	if err != nil {
		return fmt.Errorf("load wipe date: %w", err)
	}
	if last == dateKey {
		return ErrWipeUsed
	}
	if err := l.store.SetLastWipe(ctx, actorID, dateKey); err != nil {
		return fmt.Errorf("record wipe date: %w", err)
	}
	return nil
}
