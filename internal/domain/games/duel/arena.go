package duel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chatkeeper/keeper/internal/adapters/keylock"
	"github.com/chatkeeper/keeper/internal/domain/model"
	"github.com/chatkeeper/keeper/internal/domain/progression"
	"github.com/chatkeeper/keeper/pkg/logger"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// Arena owns the per-context duel sessions. All transitions for one context
// run under that context's lock; the resolution transfer additionally takes
// both actor locks inside the ledger.
type Arena struct {
	ledger   *progression.Ledger
	sink     model.Sink
	sessions *xsync.MapOf[int64, *session]
	locks    *keylock.Striped
	logger   logger.Logger

	minStake    int64
	minLevel    int
	anonymousID int64
	now         func() time.Time
}

// Option applies a configuration option to the Arena.
type Option func(*Arena)

// WithMinStake sets the minimum stake for a challenge.
func WithMinStake(n int64) Option {
	return func(a *Arena) {
		if n > 0 {
			a.minStake = n
		}
	}
}

// WithMinLevel sets the level gate for issuing a challenge.
func WithMinLevel(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.minLevel = n
		}
	}
}

// WithAnonymousID sets the stand-in actor id that privileged actors may
// accept and fight for.
func WithAnonymousID(id int64) Option {
	return func(a *Arena) { a.anonymousID = id }
}

// WithSink sets the notification sink for resolved duels.
func WithSink(s model.Sink) Option {
	return func(a *Arena) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(a *Arena) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs an Arena over the progression ledger.
func New(ledger *progression.Ledger, opts ...Option) *Arena {
	a := &Arena{
		ledger:   ledger,
		sessions: xsync.NewMapOf[int64, *session](),
		locks:    keylock.New(),
		minStake: 10,
		minLevel: 4,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("duel")
	}
	return a
}

// Create opens a challenge, unconditionally replacing any session already
// live in the context. The challenger must clear the level gate (unless
// privileged), stake at least the minimum, and afford the stake.
func (a *Arena) Create(ctx context.Context, contextID, challengerID int64, challengerLevel int, privileged bool, targetID, stake int64) (Session, error) {
	if targetID == challengerID {
		return Session{}, ErrSelfDuel
	}
	if stake < a.minStake {
		return Session{}, fmt.Errorf("stake %d below %d: %w", stake, a.minStake, ErrStakeTooLow)
	}
	if !privileged && challengerLevel < a.minLevel {
		return Session{}, fmt.Errorf("level %d below %d: %w", challengerLevel, a.minLevel, ErrLevelTooLow)
	}
	ok, err := a.ledger.CanAfford(ctx, challengerID, stake)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, progression.ErrInsufficientFunds
	}

	unlock := a.locks.Lock(contextID)
	defer unlock()

	s := &session{Session: Session{
		ID:           uuid.NewString(),
		ContextID:    contextID,
		ChallengerID: challengerID,
		TargetID:     targetID,
		Stake:        stake,
		State:        StateWaitingAccept,
		CreatedAt:    a.now(),
	}}
	a.sessions.Store(contextID, s)
	metrics.UpdateActiveDuels(a.sessions.Size())

	a.logger.Debug(ctx, "duel created",
		logger.String("session_id", s.ID),
		logger.Int64("context_id", contextID),
		logger.Int64("challenger_id", challengerID),
		logger.Int64("target_id", targetID),
		logger.Int64("stake", stake),
	)
	return s.Session, nil
}

// Accept moves the session to Fighting. Only the designated target may
// accept; when the target is the anonymous stand-in, any privileged actor
// may accept for it. The target's affordability is verified here.
func (a *Arena) Accept(ctx context.Context, contextID, actorID int64, privileged bool) (Session, error) {
	unlock := a.locks.Lock(contextID)
	defer unlock()

	s, ok := a.sessions.Load(contextID)
	if !ok {
		return Session{}, ErrNoSession
	}
	if s.State != StateWaitingAccept {
		return Session{}, fmt.Errorf("accept in state %s: %w", s.State, ErrInvalidState)
	}
	if actorID != s.TargetID && !(s.TargetID == a.anonymousID && privileged) {
		return Session{}, ErrNotParticipant
	}

	ok, err := a.ledger.CanAfford(ctx, s.TargetID, s.Stake)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, progression.ErrInsufficientFunds
	}

	s.State = StateFighting
	s.challengerChose = false
	s.targetChose = false
	return s.Session, nil
}

// ChooseTactic records one side's hidden choice. Each side sets exactly
// once; when both are set the duel resolves immediately and the session is
// removed. The returned Session carries the terminal state on resolution.
func (a *Arena) ChooseTactic(ctx context.Context, contextID, actorID int64, privileged bool, tactic Tactic) (Session, error) {
	if !tactic.Valid() {
		return Session{}, fmt.Errorf("tactic %d: %w", tactic, ErrUnknownTactic)
	}

	unlock := a.locks.Lock(contextID)
	defer unlock()

	s, ok := a.sessions.Load(contextID)
	if !ok {
		return Session{}, ErrNoSession
	}
	if s.State != StateFighting {
		return Session{}, fmt.Errorf("tactic in state %s: %w", s.State, ErrInvalidState)
	}

	switch {
	case actorID == s.ChallengerID || (s.ChallengerID == a.anonymousID && privileged):
		if s.challengerChose {
			return Session{}, ErrTacticChosen
		}
		s.challengerTactic = tactic
		s.challengerChose = true
	case actorID == s.TargetID || (s.TargetID == a.anonymousID && privileged):
		if s.targetChose {
			return Session{}, ErrTacticChosen
		}
		s.targetTactic = tactic
		s.targetChose = true
	default:
		return Session{}, ErrNotParticipant
	}

	if !s.challengerChose || !s.targetChose {
		return s.Session, nil
	}
	return a.resolve(ctx, s)
}

// resolve settles a session with both tactics set. Called under the
// context lock; the transfer takes both actor locks in ascending order.
func (a *Arena) resolve(ctx context.Context, s *session) (Session, error) {
	a.sessions.Delete(s.ContextID)
	metrics.UpdateActiveDuels(a.sessions.Size())
	s.State = StateResolved

	ev := model.DuelResolved{
		EventID: uuid.NewString(),
		Stake:   s.Stake,
	}

	if s.challengerTactic == s.targetTactic {
		ev.Tie = true
		metrics.RecordDuel("tie")
	} else {
		winnerID, loserID := s.TargetID, s.ChallengerID
		if s.challengerTactic.Beats(s.targetTactic) {
			winnerID, loserID = s.ChallengerID, s.TargetID
		}
		if _, _, err := a.ledger.Transfer(ctx, winnerID, loserID, s.Stake); err != nil {
			return Session{}, fmt.Errorf("settle duel %s: %w", s.ID, err)
		}
		ev.Winner = winnerID
		ev.Loser = loserID
		metrics.RecordDuel("win")
	}

	if a.sink != nil {
		a.sink.Notify(ctx, ev)
	}
	a.logger.Info(ctx, "duel resolved",
		logger.String("session_id", s.ID),
		logger.Int64("winner_id", ev.Winner),
		logger.Int64("stake", s.Stake),
	)
	return s.Session, nil
}

// Expire terminates a WaitingAccept session whose transport-side timeout
// fired. Fighting sessions cannot expire.
func (a *Arena) Expire(ctx context.Context, contextID int64) error {
	unlock := a.locks.Lock(contextID)
	defer unlock()

	s, ok := a.sessions.Load(contextID)
	if !ok {
		return ErrNoSession
	}
	if s.State != StateWaitingAccept {
		return fmt.Errorf("expire in state %s: %w", s.State, ErrInvalidState)
	}
	s.State = StateExpired
	a.sessions.Delete(contextID)
	metrics.UpdateActiveDuels(a.sessions.Size())

	a.logger.Debug(ctx, "duel expired",
		logger.String("session_id", s.ID),
		logger.Int64("context_id", contextID),
	)
	return nil
}

// Session returns a snapshot of the live session in a context. The copy is
// taken under the context lock so concurrent transitions never tear it.
func (a *Arena) Session(contextID int64) (Session, bool) {
	unlock := a.locks.Lock(contextID)
	defer unlock()

	s, ok := a.sessions.Load(contextID)
	if !ok {
		return Session{}, false
	}
	return s.Session, true
}

// Active returns the number of live sessions.
func (a *Arena) Active() int {
	return a.sessions.Size()
}
