// Package repository persists actors, warn logs, reputation history, and
// the phrase lists. The SQLite store is the production implementation; the
// memory store backs tests.
package repository

import (
	"context"

	"github.com/chatkeeper/keeper/internal/domain/model"
)

// ListKind selects one of the externally managed phrase lists.
type ListKind string

const (
	// ListBanned is the banned-phrase list.
	ListBanned ListKind = "badwords"
	// ListAllow is the link allow list.
	ListAllow ListKind = "whitelist"
)

// Store is the persistence surface of the engine. Implementations must be
// safe for concurrent use; cross-call atomicity is owned by the domain
// layer's per-actor locks.
type Store interface {
	// EnsureActor loads an actor, creating it lazily on first sight and
	// refreshing handle and display name when provided. Handles are
	// stored without the leading '@' and lowercased.
	EnsureActor(ctx context.Context, actorID int64, handle, displayName string) (model.Actor, error)
	// Actor loads an actor. Returns ErrNotFound for unknown ids.
	Actor(ctx context.Context, actorID int64) (model.Actor, error)
	// LookupHandle resolves a handle to an actor id. Returns ErrNotFound.
	LookupHandle(ctx context.Context, handle string) (int64, error)
	// SetRank stores an actor's moderation rank.
	SetRank(ctx context.Context, actorID int64, rank int) error
	// TopActors returns up to limit actors ordered by level then XP,
	// both descending.
	TopActors(ctx context.Context, limit int) ([]model.Actor, error)
	// Standing returns the actor's 1-based leaderboard position.
	Standing(ctx context.Context, actorID int64) (int, error)
	// Staff returns actors with a stored rank above zero, highest first.
	Staff(ctx context.Context) ([]model.Actor, error)
	// ActorCount returns the number of known actors.
	ActorCount(ctx context.Context) (int, error)

	// Progress loads (xp, level) for the progression ledger.
	Progress(ctx context.Context, actorID int64) (int64, int, error)
	// SetProgress persists (xp, level).
	SetProgress(ctx context.Context, actorID int64, xp int64, level int) error

	// WarnState loads the warning count and ordered reason log.
	WarnState(ctx context.Context, actorID int64) (int, []string, error)
	// SetWarnState persists the warning count and reason log.
	SetWarnState(ctx context.Context, actorID int64, count int, reasons []string) error

	// ReputationGrantExists reports whether (from, to, dateKey) is recorded.
	ReputationGrantExists(ctx context.Context, fromID, toID int64, dateKey string) (bool, error)
	// ReputationGrantsOn counts one granter's grants on a dateKey.
	ReputationGrantsOn(ctx context.Context, fromID int64, dateKey string) (int, error)
	// RecordReputationGrant records the grant and bumps the target's score.
	RecordReputationGrant(ctx context.Context, fromID, toID int64, dateKey string) error
	// Reputation returns the actor's reputation score.
	Reputation(ctx context.Context, actorID int64) (int, error)
	// LastWipe returns the dateKey of the actor's last wipe, "" if never.
	LastWipe(ctx context.Context, actorID int64) (string, error)
	// SetLastWipe records the actor's wipe dateKey.
	SetLastWipe(ctx context.Context, actorID int64, dateKey string) error

	// List returns a phrase list, lowercased.
	List(ctx context.Context, kind ListKind) ([]string, error)
	// AddListItem inserts an item into a phrase list, lowercasing it.
	AddListItem(ctx context.Context, kind ListKind, item string) error
	// RemoveListItem deletes an item from a phrase list.
	RemoveListItem(ctx context.Context, kind ListKind, item string) error

	// Close releases the store.
	Close() error
}
