package sched_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatkeeper/keeper/internal/adapters/sched"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAfterFunc(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		s := sched.New()

		Convey("A scheduled function runs after the delay", func() {
			fired := make(chan struct{})
			s.AfterFunc(5*time.Millisecond, func() { close(fired) })

			select {
			case <-fired:
			case <-time.After(time.Second):
				t.Fatal("scheduled function never ran")
			}
		})

		Convey("Cancel stops a pending task", func() {
			var ran atomic.Bool
			cancel := s.AfterFunc(50*time.Millisecond, func() { ran.Store(true) })
			So(cancel(), ShouldBeTrue)
			So(cancel(), ShouldBeFalse) // second cancel is a no-op

			time.Sleep(80 * time.Millisecond)
			So(ran.Load(), ShouldBeFalse)
			So(s.Pending(), ShouldEqual, 0)
		})

		Convey("Cancel after the task ran reports false", func() {
			fired := make(chan struct{})
			cancel := s.AfterFunc(time.Millisecond, func() { close(fired) })
			<-fired
			time.Sleep(10 * time.Millisecond)
			So(cancel(), ShouldBeFalse)
		})

		Convey("Pending counts outstanding tasks", func() {
			c1 := s.AfterFunc(time.Minute, func() {})
			c2 := s.AfterFunc(time.Minute, func() {})
			So(s.Pending(), ShouldEqual, 2)
			c1()
			c2()
			So(s.Pending(), ShouldEqual, 0)
		})
	})
}

func TestShutdown(t *testing.T) {
	Convey("Given a scheduler with pending work", t, func() {
		s := sched.New()

		Convey("Shutdown cancels pending tasks and refuses new ones", func() {
			var ran atomic.Bool
			s.AfterFunc(50*time.Millisecond, func() { ran.Store(true) })

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			So(s.Shutdown(ctx), ShouldBeNil)
			So(s.Pending(), ShouldEqual, 0)

			stop := s.AfterFunc(time.Millisecond, func() { ran.Store(true) })
			So(stop(), ShouldBeFalse)

			time.Sleep(80 * time.Millisecond)
			So(ran.Load(), ShouldBeFalse)
		})
	})
}
