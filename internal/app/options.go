package app

import (
	"time"

	"github.com/chatkeeper/keeper/internal/domain/games/wager"
	"github.com/chatkeeper/keeper/internal/domain/model"
	"github.com/chatkeeper/keeper/internal/domain/rank"
	"github.com/chatkeeper/keeper/pkg/logger"
)

// Option applies a configuration option to the Service. Options run before
// the domain components are wired, so overrides reach them.
type Option func(*Service)

// WithSink sets the notification sink events are delivered to.
func WithSink(sink model.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithOracle sets the group-role oracle backing rank resolution.
func WithOracle(o rank.Oracle) Option {
	return func(s *Service) {
		if o != nil {
			s.oracle = o
		}
	}
}

// WithRNG overrides the wager roll source. Used in tests.
func WithRNG(r wager.RNG) Option {
	return func(s *Service) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithDelayer overrides the wager payout scheduler.
func WithDelayer(d wager.Delayer) Option {
	return func(s *Service) {
		if d != nil {
			s.delayer = d
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
