// Package warns tracks per-actor warning counts with an append-only reason
// log and LIFO removal. Escalation on reaching the limit is the caller's
// job; the tracker only counts.
package warns

import (
	"context"
	"fmt"

	"github.com/chatkeeper/keeper/internal/adapters/keylock"
)

// Store is the slice of the actor store the tracker needs.
type Store interface {
	// WarnState loads the warning count and the ordered reason log.
	WarnState(ctx context.Context, actorID int64) (int, []string, error)
	// SetWarnState persists the warning count and reason log.
	SetWarnState(ctx context.Context, actorID int64, count int, reasons []string) error
}

// Tracker serializes warn mutations per actor. The count and the reason log
// can diverge: a warn issued without a reason bumps the count only.
type Tracker struct {
	store Store
	locks *keylock.Striped
	limit int
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithLimit sets the escalation threshold reported by Limit.
func WithLimit(n int) Option {
	return func(t *Tracker) {
		if n >= 1 {
			t.limit = n
		}
	}
}

// WithLocks shares a lock table with other components keyed by actor id.
func WithLocks(l *keylock.Striped) Option {
	return func(t *Tracker) {
		if l != nil {
			t.locks = l
		}
	}
}

// New constructs a Tracker over a store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		locks: keylock.New(),
		limit: 3,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limit returns the configured escalation threshold.
func (t *Tracker) Limit() int { return t.limit }

// Add records one warning and returns the new count. An empty reason bumps
// the count without extending the log.
func (t *Tracker) Add(ctx context.Context, actorID int64, reason string) (int, error) {
	unlock := t.locks.Lock(actorID)
	defer unlock()

	count, reasons, err := t.store.WarnState(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("load warn state for %d: %w", actorID, err)
	}
	count++
	if reason != "" {
		reasons = append(reasons, reason)
	}
	if err := t.store.SetWarnState(ctx, actorID, count, reasons); err != nil {
		return 0, fmt.Errorf("persist warn state for %d: %w", actorID, err)
	}
	return count, nil
}

// Remove forgives the most recent warning and returns the new count. The
// count floors at zero and the latest logged reason is dropped.
func (t *Tracker) Remove(ctx context.Context, actorID int64) (int, error) {
	unlock := t.locks.Lock(actorID)
	defer unlock()

	count, reasons, err := t.store.WarnState(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("load warn state for %d: %w", actorID, err)
	}
	if count > 0 {
		count--
	}
	if len(reasons) > 0 {
		reasons = reasons[:len(reasons)-1]
	}
	if err := t.store.SetWarnState(ctx, actorID, count, reasons); err != nil {
		return 0, fmt.Errorf("persist warn state for %d: %w", actorID, err)
	}
	return count, nil
}

// Reset clears the count and the reason log.
func (t *Tracker) Reset(ctx context.Context, actorID int64) error {
	unlock := t.locks.Lock(actorID)
	defer unlock()

	if err := t.store.SetWarnState(ctx, actorID, 0, nil); err != nil {
		return fmt.Errorf("reset warn state for %d: %w", actorID, err)
	}
	return nil
}

// Reasons returns the ordered reason log, oldest first.
func (t *Tracker) Reasons(ctx context.Context, actorID int64) ([]string, error) {
	_, reasons, err := t.store.WarnState(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load warn state for %d: %w", actorID, err)
	}
	return reasons, nil
}

// Count returns the current warning count.
func (t *Tracker) Count(ctx context.Context, actorID int64) (int, error) {
	count, _, err := t.store.WarnState(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("load warn state for %d: %w", actorID, err)
	}
	return count, nil
}
