// Package app is the decision engine's composition root. It wires the
// domain components over one actor store and exposes the operations the
// transport layer calls. The engine returns structured results and events;
// it never formats user-facing prose.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chatkeeper/keeper/internal/adapters/keylock"
	"github.com/chatkeeper/keeper/internal/adapters/repository"
	"github.com/chatkeeper/keeper/internal/config"
	"github.com/chatkeeper/keeper/internal/domain/filter"
	"github.com/chatkeeper/keeper/internal/domain/flood"
	"github.com/chatkeeper/keeper/internal/domain/games/duel"
	"github.com/chatkeeper/keeper/internal/domain/games/wager"
	"github.com/chatkeeper/keeper/internal/domain/model"
	"github.com/chatkeeper/keeper/internal/domain/progression"
	"github.com/chatkeeper/keeper/internal/domain/rank"
	"github.com/chatkeeper/keeper/internal/domain/reputation"
	"github.com/chatkeeper/keeper/internal/domain/warns"
	"github.com/chatkeeper/keeper/pkg/logger"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// cooldownEntries bounds the XP cooldown caches. Entries expire on their
// own; the cap only guards against unbounded growth in huge communities.
const cooldownEntries = 8192

// Restriction durations the escalation paths report to the sink.
const (
	floodRestrict = 10 * time.Minute
	warnRestrict  = 30 * time.Minute
)

// Message is one observed chat event to screen.
type Message struct {
	GroupID     int64
	ActorID     int64
	Handle      string
	DisplayName string
	Text        string
	IsCommand   bool
	IsMedia     bool
}

// ScreenResult is the structured outcome of screening one message.
type ScreenResult struct {
	Verdict    flood.Verdict
	Violation  filter.Violation
	WarnCount  int   // running count after a violation
	Removed    bool  // the transport should delete the message
	XPAwarded  int64 // zero when on cooldown or screened out
	Transition progression.Transition
}

// Profile is the queryable view of one actor.
type Profile struct {
	Actor    model.Actor
	Standing int
	Warns    []string
}

// Stats is a point-in-time snapshot for the operational endpoints.
type Stats struct {
	Actors       int
	FloodTracked int
	ActiveDuels  int
}

// Service owns the wired domain components. All per-actor read-modify-write
// paths share one lock table keyed by actor id; duel transitions serialize
// on the context id inside the arena.
type Service struct {
	store    repository.Store
	resolver *rank.Resolver
	ledger   *progression.Ledger
	flood    *flood.Scorer
	filter   *filter.Filter
	warns    *warns.Tracker
	rep      *reputation.Ledger
	wagers   *wager.Engine
	duels    *duel.Arena

	sink    model.Sink
	oracle  rank.Oracle
	rng     wager.RNG
	delayer wager.Delayer
	logger  logger.Logger
	now     func() time.Time

	msgSeen      *expirable.LRU[int64, struct{}]
	mediaSeen    *expirable.LRU[int64, struct{}]
	lastActivity *xsync.MapOf[int64, time.Time]

	xpPerMessage   int64
	xpLongBonus    int64
	xpRevivalBonus int64
	xpPerMedia     int64
	xpReputation   int64
	longLen        int
	revivalQuiet   time.Duration
	nightStart     int
	nightEnd       int
	nightMult      float64
	repMinLevel    int
	wipeMinLevel   int
}

// storeLists adapts the repository's phrase lists to the filter's provider.
type storeLists struct {
	store repository.Store
}

func (l storeLists) Banned(ctx context.Context) ([]string, error) {
	return l.store.List(ctx, repository.ListBanned)
}

func (l storeLists) AllowList(ctx context.Context) ([]string, error) {
	return l.store.List(ctx, repository.ListAllow)
}

// New wires a Service over a store. A nil cfg uses the engine defaults.
func New(store repository.Store, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}

	s := &Service{
		store: store,
		now:   time.Now,

		xpPerMessage:   cfg.XPPerMessage,
		xpLongBonus:    cfg.XPLongBonus,
		xpRevivalBonus: cfg.XPRevivalBonus,
		xpPerMedia:     cfg.XPPerMedia,
		xpReputation:   cfg.XPReputation,
		longLen:        cfg.LongMessageLen,
		revivalQuiet:   time.Duration(cfg.RevivalQuietS) * time.Second,
		nightStart:     cfg.NightStartHour,
		nightEnd:       cfg.NightEndHour,
		nightMult:      cfg.NightMultiplier,
		repMinLevel:    4,
		wipeMinLevel:   5,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	actorLocks := keylock.New()

	s.resolver = rank.New(
		rank.WithOwner(cfg.OwnerID),
		rank.WithSuperActors(cfg.AnonymousID, cfg.ServiceID),
		rank.WithOracle(s.oracle),
	)
	s.ledger = progression.New(store, progression.WithLocks(actorLocks))
	s.flood = flood.New(
		flood.WithDecayRate(cfg.FloodDecayRate),
		flood.WithThresholds(cfg.FloodWarnScore, cfg.FloodMaxScore),
		flood.WithSimilarityThreshold(cfg.FloodSimilarity),
		flood.WithClock(s.now),
	)
	s.filter = filter.New(storeLists{store: store}, filter.WithFuzzyThreshold(cfg.FilterSimilarity))
	s.warns = warns.New(store, warns.WithLimit(cfg.WarnLimit), warns.WithLocks(actorLocks))
	s.rep = reputation.New(store,
		reputation.WithDailyCap(cfg.ReputationDailyCap),
		reputation.WithClock(s.now),
		reputation.WithLocks(actorLocks),
	)

	wopts := []wager.Option{wager.WithSink(s.sink)}
	if s.rng != nil {
		wopts = append(wopts, wager.WithRNG(s.rng))
	}
	if s.delayer != nil {
		wopts = append(wopts, wager.WithDelayer(s.delayer))
	}
	s.wagers = wager.New(s.ledger, wopts...)

	s.duels = duel.New(s.ledger,
		duel.WithMinStake(cfg.DuelMinStake),
		duel.WithAnonymousID(cfg.AnonymousID),
		duel.WithSink(s.sink),
		duel.WithClock(s.now),
	)

	s.msgSeen = expirable.NewLRU[int64, struct{}](cooldownEntries, nil,
		time.Duration(cfg.MessageCooldownS)*time.Second)
	s.mediaSeen = expirable.NewLRU[int64, struct{}](cooldownEntries, nil,
		time.Duration(cfg.MediaCooldownS)*time.Second)
	s.lastActivity = xsync.NewMapOf[int64, time.Time]()

	return s
}

func (s *Service) notify(ctx context.Context, ev model.Event) {
	if s.sink != nil {
		s.sink.Notify(ctx, ev)
	}
}

// levelEvent reports a boundary crossing to the sink.
func (s *Service) levelEvent(ctx context.Context, t progression.Transition) {
	if t.OldLevel == t.NewLevel {
		return
	}
	s.notify(ctx, model.LevelChanged{
		EventID:  uuid.NewString(),
		ActorID:  t.ActorID,
		OldLevel: t.OldLevel,
		NewLevel: t.NewLevel,
	})
}

// privileged reports whether the actor holds any moderation rank. Staff
// bypass flood actions, content screening, and the game level gates.
func (s *Service) privileged(ctx context.Context, groupID int64, a model.Actor) bool {
	return s.resolver.Rank(ctx, groupID, a.ID, a.Rank) >= rank.Helper
}

// ScreenMessage runs the moderation pipeline for one message: flood first,
// then the content filter, then the XP farm for whatever survives. The
// directory record is refreshed on every observed event.
func (s *Service) ScreenMessage(ctx context.Context, msg Message) (ScreenResult, error) {
	actor, err := s.store.EnsureActor(ctx, msg.ActorID, msg.Handle, msg.DisplayName)
	if err != nil {
		return ScreenResult{}, fmt.Errorf("ensure actor: %w", err)
	}
	metrics.RecordMessageScreened()

	priv := s.privileged(ctx, msg.GroupID, actor)

	content := msg.Text
	if content == "" {
		content = "content"
	}
	var res ScreenResult
	res.Verdict = s.flood.Observe(msg.ActorID, content)
	if !priv {
		if res.Verdict != flood.VerdictOK {
			metrics.RecordFloodAction(res.Verdict.String())
		}
		switch res.Verdict {
		case flood.VerdictMute:
			res.Removed = true
			s.notify(ctx, model.RestrictActor{
				EventID:  uuid.NewString(),
				ActorID:  msg.ActorID,
				Reason:   "flood",
				Duration: floodRestrict,
			})
			return res, nil
		case flood.VerdictWarn:
			res.Removed = true
			return res, nil
		}
	}

	if msg.IsCommand {
		return res, nil
	}

	if !priv {
		v, err := s.filter.Check(ctx, msg.Text)
		if err != nil {
			return res, fmt.Errorf("screen content: %w", err)
		}
		if v != filter.ViolationNone {
			metrics.RecordViolation(v.Reason())
			res.Violation = v
			res.Removed = true
			res.WarnCount, err = s.punish(ctx, msg.ActorID, v.Reason())
			if err != nil {
				return res, err
			}
			return res, nil
		}
	}

	t, awarded, err := s.farm(ctx, msg)
	if err != nil {
		return res, err
	}
	res.XPAwarded = awarded
	res.Transition = t
	return res, nil
}

// punish records one warning and escalates at the limit: the count resets
// and a timed restriction directive goes to the sink.
func (s *Service) punish(ctx context.Context, actorID int64, reason string) (int, error) {
	count, err := s.warns.Add(ctx, actorID, reason)
	if err != nil {
		return 0, err
	}
	s.notify(ctx, model.ViolationDetected{
		EventID: uuid.NewString(),
		ActorID: actorID,
		Reason:  reason,
		Count:   count,
		Limit:   s.warns.Limit(),
	})

	if count >= s.warns.Limit() {
		if err := s.warns.Reset(ctx, actorID); err != nil {
			return count, err
		}
		s.notify(ctx, model.RestrictActor{
			EventID:  uuid.NewString(),
			ActorID:  actorID,
			Reason:   reason,
			Duration: warnRestrict,
		})
	}
	return count, nil
}

// farm awards activity XP subject to the per-actor cooldowns.
func (s *Service) farm(ctx context.Context, msg Message) (progression.Transition, int64, error) {
	if msg.IsMedia {
		if _, cooling := s.mediaSeen.Get(msg.ActorID); cooling {
			return progression.Transition{}, 0, nil
		}
		s.mediaSeen.Add(msg.ActorID, struct{}{})
		return s.award(ctx, msg.ActorID, s.nightAdjust(s.xpPerMedia))
	}

	if _, cooling := s.msgSeen.Get(msg.ActorID); cooling {
		return progression.Transition{}, 0, nil
	}
	s.msgSeen.Add(msg.ActorID, struct{}{})

	xp := s.xpPerMessage
	if utf8.RuneCountInString(stripLinks(msg.Text)) > s.longLen {
		xp += s.xpLongBonus
	}

	now := s.now()
	if last, ok := s.lastActivity.Load(msg.GroupID); ok && now.Sub(last) > s.revivalQuiet {
		xp += s.xpRevivalBonus
	}
	s.lastActivity.Store(msg.GroupID, now)

	return s.award(ctx, msg.ActorID, s.nightAdjust(xp))
}

func (s *Service) award(ctx context.Context, actorID, xp int64) (progression.Transition, int64, error) {
	t, err := s.ledger.Update(ctx, actorID, xp)
	if err != nil {
		return progression.Transition{}, 0, fmt.Errorf("award xp: %w", err)
	}
	metrics.RecordXPAwarded(float64(xp))
	s.levelEvent(ctx, t)
	return t, xp, nil
}

// nightAdjust applies the night multiplier, truncating to an integer.
func (s *Service) nightAdjust(xp int64) int64 {
	hour := s.now().Hour()
	if hour >= s.nightStart && hour < s.nightEnd {
		return int64(float64(xp) * s.nightMult)
	}
	return xp
}

// stripLinks drops whitespace-delimited words that look like URLs, so
// pasted links do not count toward the long-message bonus.
func stripLinks(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, w := range fields {
		if !strings.HasPrefix(w, "http") {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// GiveReputation endorses the target on behalf of the granter. Granting is
// gated on the granter's level unless they hold a rank; a successful grant
// awards the target bonus XP.
func (s *Service) GiveReputation(ctx context.Context, groupID, fromID, toID int64) error {
	giver, err := s.store.EnsureActor(ctx, fromID, "", "")
	if err != nil {
		return fmt.Errorf("ensure granter: %w", err)
	}
	if giver.Level < s.repMinLevel && !s.privileged(ctx, groupID, giver) {
		return fmt.Errorf("level %d below %d: %w", giver.Level, s.repMinLevel, ErrLevelTooLow)
	}
	if _, err := s.store.EnsureActor(ctx, toID, "", ""); err != nil {
		return fmt.Errorf("ensure target: %w", err)
	}

	if err := s.rep.Grant(ctx, fromID, toID); err != nil {
		return err
	}

	t, err := s.ledger.Update(ctx, toID, s.xpReputation)
	if err != nil {
		return fmt.Errorf("award reputation xp: %w", err)
	}
	s.levelEvent(ctx, t)

	score, err := s.store.Reputation(ctx, toID)
	if err != nil {
		return fmt.Errorf("load reputation: %w", err)
	}
	s.notify(ctx, model.ReputationGranted{
		EventID:    uuid.NewString(),
		FromID:     fromID,
		ToID:       toID,
		Reputation: score,
	})
	return nil
}

// AuthorizeWipe decides whether the actor may delete a community message
// right now. Rank-admins are always allowed; everyone else needs the level
// and spends the once-a-day allowance.
func (s *Service) AuthorizeWipe(ctx context.Context, groupID, actorID int64) error {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	if s.resolver.Rank(ctx, groupID, actorID, actor.Rank) >= rank.Admin {
		return nil
	}
	if actor.Level < s.wipeMinLevel {
		return fmt.Errorf("level %d below %d: %w", actor.Level, s.wipeMinLevel, ErrLevelTooLow)
	}
	return s.rep.ConsumeWipe(ctx, actorID)
}

// PlayWager runs one chance game for the actor. Staff bypass the level
// gates; the stake is debited before the delayed reveal.
func (s *Service) PlayWager(ctx context.Context, groupID, actorID int64, game wager.Game, stake int64) (wager.Receipt, error) {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return wager.Receipt{}, fmt.Errorf("ensure actor: %w", err)
	}
	priv := s.privileged(ctx, groupID, actor)
	return s.wagers.Play(ctx, actorID, actor.Level, priv, game, stake)
}

// CreateDuel opens a challenge in the group context.
func (s *Service) CreateDuel(ctx context.Context, groupID, contextID, challengerID, targetID, stake int64) (duel.Session, error) {
	challenger, err := s.store.EnsureActor(ctx, challengerID, "", "")
	if err != nil {
		return duel.Session{}, fmt.Errorf("ensure challenger: %w", err)
	}
	if _, err := s.store.EnsureActor(ctx, targetID, "", ""); err != nil {
		return duel.Session{}, fmt.Errorf("ensure target: %w", err)
	}
	priv := s.privileged(ctx, groupID, challenger)
	return s.duels.Create(ctx, contextID, challengerID, challenger.Level, priv, targetID, stake)
}

// AcceptDuel moves the context's challenge to the fighting state.
func (s *Service) AcceptDuel(ctx context.Context, groupID, contextID, actorID int64) (duel.Session, error) {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return duel.Session{}, fmt.Errorf("ensure actor: %w", err)
	}
	return s.duels.Accept(ctx, contextID, actorID, s.privileged(ctx, groupID, actor))
}

// ChooseTactic records one side's hidden move; the duel resolves when both
// sides have chosen.
func (s *Service) ChooseTactic(ctx context.Context, groupID, contextID, actorID int64, tactic duel.Tactic) (duel.Session, error) {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return duel.Session{}, fmt.Errorf("ensure actor: %w", err)
	}
	return s.duels.ChooseTactic(ctx, contextID, actorID, s.privileged(ctx, groupID, actor), tactic)
}

// ExpireDuel terminates an unanswered challenge after the transport-side
// timeout fires.
func (s *Service) ExpireDuel(ctx context.Context, contextID int64) error {
	return s.duels.Expire(ctx, contextID)
}

// DuelSession returns a snapshot of the live session in a context.
func (s *Service) DuelSession(contextID int64) (duel.Session, bool) {
	return s.duels.Session(contextID)
}

// requireActionOn verifies the actor holds at least minRank and outranks
// the target.
func (s *Service) requireActionOn(ctx context.Context, groupID, actorID, targetID int64, minRank int) error {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	target, err := s.store.EnsureActor(ctx, targetID, "", "")
	if err != nil {
		return fmt.Errorf("ensure target: %w", err)
	}
	if s.resolver.Rank(ctx, groupID, actorID, actor.Rank) < minRank {
		return fmt.Errorf("rank below %d: %w", minRank, ErrPermissionDenied)
	}
	if !s.resolver.CanActOn(ctx, groupID, actorID, actor.Rank, targetID, target.Rank) {
		return fmt.Errorf("target outranks actor: %w", ErrPermissionDenied)
	}
	return nil
}

// Warn issues one moderator warning to the target, escalating at the limit
// exactly like a screening violation.
func (s *Service) Warn(ctx context.Context, groupID, actorID, targetID int64, reason string) (int, error) {
	if err := s.requireActionOn(ctx, groupID, actorID, targetID, rank.Helper); err != nil {
		return 0, err
	}
	return s.punish(ctx, targetID, reason)
}

// Unwarn forgives the target's most recent warning.
func (s *Service) Unwarn(ctx context.Context, groupID, actorID, targetID int64) (int, error) {
	if err := s.requireActionOn(ctx, groupID, actorID, targetID, rank.Helper); err != nil {
		return 0, err
	}
	return s.warns.Remove(ctx, targetID)
}

// SetRank assigns a stored moderation rank. Managers may only hand out
// ranks below manager, and only to targets below manager; admins are
// unconstrained.
func (s *Service) SetRank(ctx context.Context, groupID, actorID, targetID int64, newRank int) error {
	if newRank < rank.Member || newRank > rank.Admin {
		return fmt.Errorf("rank %d: %w", newRank, ErrInvalidRank)
	}
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	actorRank := s.resolver.Rank(ctx, groupID, actorID, actor.Rank)
	if actorRank < rank.Manager {
		return fmt.Errorf("rank below %d: %w", rank.Manager, ErrPermissionDenied)
	}

	target, err := s.store.EnsureActor(ctx, targetID, "", "")
	if err != nil {
		return fmt.Errorf("ensure target: %w", err)
	}
	if actorRank == rank.Manager {
		if newRank >= rank.Manager {
			return fmt.Errorf("manager assigning rank %d: %w", newRank, ErrPermissionDenied)
		}
		if s.resolver.Rank(ctx, groupID, targetID, target.Rank) >= rank.Manager {
			return fmt.Errorf("target holds manager or above: %w", ErrPermissionDenied)
		}
	}
	return s.store.SetRank(ctx, targetID, newRank)
}

// GrantXP applies an administrative XP delta to the target. The delta may
// be negative and cascades like any other ledger update.
func (s *Service) GrantXP(ctx context.Context, groupID, actorID, targetID, amount int64) (progression.Transition, error) {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return progression.Transition{}, fmt.Errorf("ensure actor: %w", err)
	}
	if s.resolver.Rank(ctx, groupID, actorID, actor.Rank) < rank.Manager {
		return progression.Transition{}, fmt.Errorf("rank below %d: %w", rank.Manager, ErrPermissionDenied)
	}
	if _, err := s.store.EnsureActor(ctx, targetID, "", ""); err != nil {
		return progression.Transition{}, fmt.Errorf("ensure target: %w", err)
	}

	t, err := s.ledger.Update(ctx, targetID, amount)
	if err != nil {
		return progression.Transition{}, err
	}
	s.levelEvent(ctx, t)
	return t, nil
}

// AddListItem adds a phrase to a screening list.
func (s *Service) AddListItem(ctx context.Context, groupID, actorID int64, kind repository.ListKind, item string) error {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	if s.resolver.Rank(ctx, groupID, actorID, actor.Rank) < rank.Senior {
		return fmt.Errorf("rank below %d: %w", rank.Senior, ErrPermissionDenied)
	}
	return s.store.AddListItem(ctx, kind, item)
}

// RemoveListItem removes a phrase from a screening list.
func (s *Service) RemoveListItem(ctx context.Context, groupID, actorID int64, kind repository.ListKind, item string) error {
	actor, err := s.store.EnsureActor(ctx, actorID, "", "")
	if err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	if s.resolver.Rank(ctx, groupID, actorID, actor.Rank) < rank.Senior {
		return fmt.Errorf("rank below %d: %w", rank.Senior, ErrPermissionDenied)
	}
	return s.store.RemoveListItem(ctx, kind, item)
}

// ForgetFlood drops the actor's flood state, used when staff lift a mute.
func (s *Service) ForgetFlood(actorID int64) {
	s.flood.Forget(actorID)
}

// Leaders returns the top actors by (level, xp) descending.
func (s *Service) Leaders(ctx context.Context, limit int) ([]model.Actor, error) {
	return s.store.TopActors(ctx, limit)
}

// Staff returns every actor holding a stored rank, highest first.
func (s *Service) Staff(ctx context.Context) ([]model.Actor, error) {
	return s.store.Staff(ctx)
}

// LookupHandle resolves a handle to an actor id.
func (s *Service) LookupHandle(ctx context.Context, handle string) (int64, error) {
	return s.store.LookupHandle(ctx, handle)
}

// Profile returns the actor's record, leaderboard standing, and warn log.
func (s *Service) Profile(ctx context.Context, actorID int64) (Profile, error) {
	actor, err := s.store.Actor(ctx, actorID)
	if err != nil {
		return Profile{}, err
	}
	standing, err := s.store.Standing(ctx, actorID)
	if err != nil {
		return Profile{}, err
	}
	reasons, err := s.warns.Reasons(ctx, actorID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Actor: actor, Standing: standing, Warns: reasons}, nil
}

// Stats snapshots the engine for the operational endpoints and refreshes
// the population gauges.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.store.ActorCount(ctx)
	if err != nil {
		return Stats{}, err
	}
	metrics.UpdateActorCount(n)
	return Stats{
		Actors:       n,
		FloodTracked: s.flood.Tracked(),
		ActiveDuels:  s.duels.Active(),
	}, nil
}
