// Package sched provides a cancellable delayed-task scheduler. The wager
// engine uses it for the reveal delay between debit and payout; callers
// never block on a scheduled task.
package sched

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chatkeeper/keeper/pkg/logger"
)

const (
	taskPending int32 = iota
	taskFired
	taskCanceled
)

// task tracks one scheduled function. State moves exactly once out of
// pending, so fire and cancel cannot both win.
type task struct {
	state atomic.Int32
	timer *time.Timer
}

// Scheduler runs functions after a delay on timer goroutines.
type Scheduler struct {
	tasks    *xsync.MapOf[uint64, *task]
	nextID   atomic.Uint64
	closed   atomic.Bool
	inflight sync.WaitGroup
	logger   logger.Logger
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks: xsync.NewMapOf[uint64, *task](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sched")
	}
	return s
}

// AfterFunc schedules fn to run once after d. The returned cancel reports
// whether it stopped the task before it ran. After Shutdown, scheduling is
// a no-op and cancel reports false.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) (cancel func() bool) {
	if s.closed.Load() {
		return func() bool { return false }
	}

	id := s.nextID.Add(1)
	t := &task{}
	t.timer = time.AfterFunc(d, func() {
		s.inflight.Add(1)
		defer s.inflight.Done()

		if !t.state.CompareAndSwap(taskPending, taskFired) {
			return
		}
		s.tasks.Delete(id)
		if s.closed.Load() {
			return
		}
		fn()
	})
	s.tasks.Store(id, t)

	return func() bool {
		if !t.state.CompareAndSwap(taskPending, taskCanceled) {
			return false
		}
		s.tasks.Delete(id)
		t.timer.Stop()
		return true
	}
}

// Pending returns the number of tasks not yet fired or canceled.
func (s *Scheduler) Pending() int {
	return s.tasks.Size()
}

// Shutdown cancels every pending task and waits for in-flight ones to
// finish or the context to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.closed.Store(true)

	s.tasks.Range(func(id uint64, t *task) bool {
		if t.state.CompareAndSwap(taskPending, taskCanceled) {
			t.timer.Stop()
		}
		s.tasks.Delete(id)
		return true
	})

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
