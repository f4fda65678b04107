package wager

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/chatkeeper/keeper/internal/domain/model"
	"github.com/chatkeeper/keeper/internal/domain/progression"
	"github.com/chatkeeper/keeper/pkg/logger"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// RNG produces uniform rolls over a game's symbol space.
type RNG interface {
	// Roll returns a uniform value in [1, symbols].
	Roll(symbols int) int
}

// Delayer schedules a function after a delay without blocking the caller.
// The returned cancel stops the run if it has not started yet.
type Delayer interface {
	AfterFunc(d time.Duration, fn func()) (cancel func() bool)
}

type mathRNG struct{}

func (mathRNG) Roll(symbols int) int { return rand.IntN(symbols) + 1 }

// timerDelayer backs the default Delayer with time.AfterFunc.
type timerDelayer struct{}

func (timerDelayer) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// Receipt describes one played wager. The debit has been applied; the
// payout, if any, lands after the game's delay.
type Receipt struct {
	Game       Game
	Stake      int64
	Roll       int
	Multiplier int64
	Payout     int64 // stake times multiplier, zero on a loss
	Debit      progression.Transition
}

// Won reports whether the roll pays out.
func (r Receipt) Won() bool { return r.Multiplier > 0 }

// Engine runs wagers against the progression ledger. The delay between
// debit and credit is a suspension point only; no lock is held across it.
type Engine struct {
	ledger *progression.Ledger
	rng    RNG
	delay  Delayer
	sink   model.Sink
	logger logger.Logger

	delayFor func(Game) time.Duration
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRNG overrides the roll source. Used in tests.
func WithRNG(r RNG) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithDelayer overrides the payout scheduler.
func WithDelayer(d Delayer) Option {
	return func(e *Engine) {
		if d != nil {
			e.delay = d
		}
	}
}

// WithSink sets the notification sink for resolved wagers.
func WithSink(s model.Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithDelayFunc overrides the per-game payout delay.
func WithDelayFunc(f func(Game) time.Duration) Option {
	return func(e *Engine) {
		if f != nil {
			e.delayFor = f
		}
	}
}

// New constructs an Engine over the progression ledger.
func New(ledger *progression.Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger: ledger,
		rng:    mathRNG{},
		delay:  timerDelayer{},
		delayFor: func(g Game) time.Duration {
			if g == GameSlots {
				return 2 * time.Second
			}
			return 4 * time.Second
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("wager")
	}
	return e
}

// Play runs one wager. The stake is debited immediately; the outcome is
// decided up front and the payout is credited after the game's delay.
// Level gates apply unless the actor is privileged.
func (e *Engine) Play(ctx context.Context, actorID int64, level int, privileged bool, game Game, stake int64) (Receipt, error) {
	if !game.Valid() {
		return Receipt{}, fmt.Errorf("game %d: %w", game, ErrUnknownGame)
	}
	if stake <= 0 {
		return Receipt{}, fmt.Errorf("stake %d: %w", stake, ErrInvalidStake)
	}
	if !privileged && level < game.MinLevel() {
		return Receipt{}, fmt.Errorf("level %d below %d: %w", level, game.MinLevel(), ErrLevelTooLow)
	}

	debit, err := e.ledger.Debit(ctx, actorID, stake)
	if err != nil {
		return Receipt{}, err
	}

	roll := e.rng.Roll(game.Symbols())
	mult := game.Multiplier(roll)
	receipt := Receipt{
		Game:       game,
		Stake:      stake,
		Roll:       roll,
		Multiplier: mult,
		Debit:      debit,
	}
	if mult > 0 {
		receipt.Payout = stake * mult
		metrics.RecordWager(game.String(), "win")
	} else {
		metrics.RecordWager(game.String(), "loss")
	}

	// The credit and the notification run after the display delay. The
	// request context may be gone by then.
	bg := context.WithoutCancel(ctx)
	e.delay.AfterFunc(e.delayFor(game), func() {
		e.settle(bg, actorID, receipt)
	})

	e.logger.Debug(ctx, "wager played",
		logger.Int64("actor_id", actorID),
		logger.String("game", game.String()),
		logger.Int64("stake", stake),
		logger.Int("roll", roll),
	)
	return receipt, nil
}

// settle credits the payout and notifies the sink.
func (e *Engine) settle(ctx context.Context, actorID int64, r Receipt) {
	oldLvl, newLvl := r.Debit.NewLevel, r.Debit.NewLevel
	if r.Payout > 0 {
		credit, err := e.ledger.Update(ctx, actorID, r.Payout)
		if err != nil {
			e.logger.Error(ctx, "wager payout failed",
				logger.Int64("actor_id", actorID),
				logger.Int64("payout", r.Payout),
				logger.Error(err),
			)
			return
		}
		oldLvl, newLvl = credit.OldLevel, credit.NewLevel
	}

	if e.sink == nil {
		return
	}
	e.sink.Notify(ctx, model.WagerResolved{
		EventID:    uuid.NewString(),
		ActorID:    actorID,
		Game:       r.Game.String(),
		Stake:      r.Stake,
		Roll:       r.Roll,
		Multiplier: int(r.Multiplier),
		Payout:     r.Payout,
		OldLevel:   oldLvl,
		NewLevel:   newLvl,
	})
}
