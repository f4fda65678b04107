// Package rank resolves an actor's effective moderation rank. Rank is the
// access-control level (0-5) and is independent of the gamified level.
package rank

import (
	"context"

	"github.com/chatkeeper/keeper/pkg/logger"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// Moderation ranks, lowest to highest.
const (
	Member  = 0
	Helper  = 1 // mute, warn, unwarn
	Moder   = 2 // kick
	Senior  = 3 // ban, unban
	Manager = 4 // assign ranks up to Senior, grant XP
	Admin   = 5 // owner / chat administrators
)

// GroupRole is the role the external platform reports for an actor in a
// group context.
type GroupRole int

const (
	RoleMember GroupRole = iota
	RoleAdministrator
	RoleCreator
)

// Oracle reports an actor's platform role in a group. It is best-effort:
// callers own the timeout and a failed lookup degrades to no rank.
type Oracle interface {
	Role(ctx context.Context, groupID, actorID int64) (GroupRole, error)
}

// Resolver computes effective ranks. The hardcoded super-actors (the owner
// and the platform's special sender ids) always resolve to Admin.
type Resolver struct {
	ownerID  int64
	superIDs map[int64]struct{}
	oracle   Oracle
	logger   logger.Logger
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithOwner sets the owner id that bypasses every rank comparison.
func WithOwner(id int64) Option {
	return func(r *Resolver) { r.ownerID = id }
}

// WithSuperActors registers platform ids that always resolve to Admin.
func WithSuperActors(ids ...int64) Option {
	return func(r *Resolver) {
		for _, id := range ids {
			r.superIDs[id] = struct{}{}
		}
	}
}

// WithOracle sets the group-role oracle.
func WithOracle(o Oracle) Option {
	return func(r *Resolver) {
		if o != nil {
			r.oracle = o
		}
	}
}

// WithLogger sets a custom logger for the resolver.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New constructs a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		superIDs: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("rank")
	}
	return r
}

// Rank returns the actor's effective rank in the group. Resolution order:
// hardcoded super-actors, stored rank, oracle role. An oracle failure is
// never surfaced; the lookup fails closed to Member.
func (r *Resolver) Rank(ctx context.Context, groupID, actorID int64, storedRank int) int {
	if actorID == r.ownerID {
		return Admin
	}
	if _, ok := r.superIDs[actorID]; ok {
		return Admin
	}
	if storedRank > 0 {
		return storedRank
	}
	if r.oracle == nil {
		return Member
	}
	role, err := r.oracle.Role(ctx, groupID, actorID)
	if err != nil {
		metrics.RecordOracleError()
		r.logger.Warn(ctx, "role oracle unavailable, degrading to member",
			logger.Int64("actor_id", actorID),
			logger.Error(err),
		)
		return Member
	}
	if role == RoleCreator || role == RoleAdministrator {
		return Admin
	}
	return Member
}

// CanActOn reports whether actor may apply a privileged action to target.
// The rule is strictly-greater rank; the hardcoded owner may always act.
func (r *Resolver) CanActOn(ctx context.Context, groupID, actorID int64, actorStored int, targetID int64, targetStored int) bool {
	if actorID == r.ownerID {
		return true
	}
	return r.Rank(ctx, groupID, actorID, actorStored) > r.Rank(ctx, groupID, targetID, targetStored)
}

// IsSuper reports whether the id is one of the hardcoded super-actors.
func (r *Resolver) IsSuper(actorID int64) bool {
	if actorID == r.ownerID {
		return true
	}
	_, ok := r.superIDs[actorID]
	return ok
}
