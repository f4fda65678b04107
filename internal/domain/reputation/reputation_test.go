package reputation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chatkeeper/keeper/internal/domain/reputation"
	. "github.com/smartystreets/goconvey/convey"
)

type grantKey struct {
	from, to int64
	date     string
}

type memStore struct {
	mu     sync.Mutex
	grants map[grantKey]struct{}
	rep    map[int64]int
	wipes  map[int64]string
}

func newMemStore() *memStore {
	return &memStore{
		grants: make(map[grantKey]struct{}),
		rep:    make(map[int64]int),
		wipes:  make(map[int64]string),
	}
}

func (m *memStore) ReputationGrantExists(_ context.Context, from, to int64, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.grants[grantKey{from, to, date}]
	return ok, nil
}

func (m *memStore) ReputationGrantsOn(_ context.Context, from int64, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.grants {
		if k.from == from && k.date == date {
			n++
		}
	}
	return n, nil
}

func (m *memStore) RecordReputationGrant(_ context.Context, from, to int64, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey{from, to, date}] = struct{}{}
	m.rep[to]++
	return nil
}

func (m *memStore) LastWipe(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wipes[id], nil
}

func (m *memStore) SetLastWipe(_ context.Context, id int64, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wipes[id] = date
	return nil
}

func TestGrant(t *testing.T) {
	ctx := context.Background()

	Convey("Given a reputation ledger with a controlled clock", t, func() {
		store := newMemStore()
		day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return day }
		ledger := reputation.New(store, reputation.WithClock(func() time.Time { return clock() }))

		Convey("A first grant succeeds and bumps the target's score", func() {
			So(ledger.Grant(ctx, 1, 2), ShouldBeNil)
			So(store.rep[2], ShouldEqual, 1)
		})

		Convey("Self-grants are rejected", func() {
			So(ledger.Grant(ctx, 1, 1), ShouldEqual, reputation.ErrSelfGrant)
		})

		Convey("The same target cannot be endorsed twice in a day", func() {
			So(ledger.Grant(ctx, 1, 2), ShouldBeNil)
			So(ledger.Grant(ctx, 1, 2), ShouldEqual, reputation.ErrTargetDailyLimit)
		})

		Convey("Three distinct grants exhaust the daily allowance", func() {
			So(ledger.Grant(ctx, 1, 2), ShouldBeNil)
			So(ledger.Grant(ctx, 1, 3), ShouldBeNil)
			So(ledger.Grant(ctx, 1, 4), ShouldBeNil)
			So(ledger.Grant(ctx, 1, 5), ShouldEqual, reputation.ErrDailyLimit)
		})

		Convey("The allowance resets on the next day", func() {
			So(ledger.Grant(ctx, 1, 2), ShouldBeNil)
			So(ledger.Grant(ctx, 1, 3), ShouldBeNil)
			So(ledger.Grant(ctx, 1, 4), ShouldBeNil)

			day = day.Add(24 * time.Hour)
			So(ledger.Grant(ctx, 1, 2), ShouldBeNil)
		})

		Convey("Different granters have independent allowances", func() {
			So(ledger.Grant(ctx, 1, 9), ShouldBeNil)
			So(ledger.Grant(ctx, 2, 9), ShouldBeNil)
			So(store.rep[9], ShouldEqual, 2)
		})

		Convey("Concurrent grants cannot exceed the daily cap", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(target int64) {
					defer wg.Done()
					_ = ledger.Grant(ctx, 1, 100+target)
				}(int64(i))
			}
			wg.Wait()

			n, _ := store.ReputationGrantsOn(ctx, 1, day.Format("2006-01-02"))
			So(n, ShouldEqual, 3)
		})
	})
}

func TestConsumeWipe(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ledger with a controlled clock", t, func() {
		store := newMemStore()
		day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		ledger := reputation.New(store, reputation.WithClock(func() time.Time { return day }))

		Convey("The first wipe of the day succeeds, the second is denied", func() {
			So(ledger.ConsumeWipe(ctx, 1), ShouldBeNil)
			So(ledger.ConsumeWipe(ctx, 1), ShouldEqual, reputation.ErrWipeUsed)
		})

		Convey("The allowance returns the next day", func() {
			So(ledger.ConsumeWipe(ctx, 1), ShouldBeNil)
			day = day.Add(24 * time.Hour)
			So(ledger.ConsumeWipe(ctx, 1), ShouldBeNil)
		})
	})
}
