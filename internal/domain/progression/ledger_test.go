package progression_test

import (
	"context"
	"sync"
	"testing"

	"github.com/chatkeeper/keeper/internal/domain/progression"
	"github.com/chatkeeper/keeper/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type memStore struct {
	mu    sync.Mutex
	xp    map[int64]int64
	level map[int64]int
}

func newMemStore() *memStore {
	return &memStore{xp: make(map[int64]int64), level: make(map[int64]int)}
}

func (m *memStore) seed(id, xp int64, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.xp[id] = xp
	m.level[id] = level
}

func (m *memStore) Progress(_ context.Context, id int64) (int64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lvl, ok := m.level[id]
	if !ok {
		lvl = progression.MinLevel
	}
	return m.xp[id], lvl, nil
}

func (m *memStore) SetProgress(_ context.Context, id int64, xp int64, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.xp[id] = xp
	m.level[id] = level
	return nil
}

func TestUpdateCascades(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ledger over a seeded store", t, func() {
		store := newMemStore()
		ledger := progression.New(store)

		Convey("A gain that crosses the level 1 capacity promotes", func() {
			store.seed(1, 480, 1)
			tr, err := ledger.Update(ctx, 1, 100)
			So(err, ShouldBeNil)
			So(tr.OldLevel, ShouldEqual, 1)
			So(tr.NewLevel, ShouldEqual, 2)
			So(tr.XP, ShouldEqual, 80)
		})

		Convey("A loss that overdraws level 2 demotes and refunds the floor capacity", func() {
			store.seed(2, 50, 2)
			tr, err := ledger.Update(ctx, 2, -100)
			So(err, ShouldBeNil)
			So(tr.NewLevel, ShouldEqual, 1)
			So(tr.XP, ShouldEqual, 450) // 50-100 = -50, +500 cap of level 1
		})

		Convey("A loss below the floor clamps xp at zero", func() {
			store.seed(3, 10, 1)
			tr, err := ledger.Update(ctx, 3, -1000)
			So(err, ShouldBeNil)
			So(tr.NewLevel, ShouldEqual, 1)
			So(tr.XP, ShouldEqual, 0)
		})

		Convey("A large gain cascades through several levels", func() {
			store.seed(4, 0, 1)
			tr, err := ledger.Update(ctx, 4, 500+2000+100)
			So(err, ShouldBeNil)
			So(tr.NewLevel, ShouldEqual, 3)
			So(tr.XP, ShouldEqual, 100)
		})

		Convey("No promotion past the top tier", func() {
			store.seed(5, 0, 5)
			tr, err := ledger.Update(ctx, 5, 1_000_000)
			So(err, ShouldBeNil)
			So(tr.NewLevel, ShouldEqual, 5)
			So(tr.XP, ShouldEqual, 1_000_000)
		})

		Convey("XP stays within [0, capacity) after arbitrary sequences", func() {
			store.seed(6, 0, 1)
			deltas := []int64{300, 300, -700, 5000, -50, 123, -9999, 42}
			for _, d := range deltas {
				tr, err := ledger.Update(ctx, 6, d)
				So(err, ShouldBeNil)
				So(tr.XP, ShouldBeGreaterThanOrEqualTo, 0)
				if tr.NewLevel < progression.MaxLevel {
					So(tr.XP, ShouldBeLessThan, progression.Capacity(tr.NewLevel))
				}
			}
		})
	})
}

func TestAffordable(t *testing.T) {
	Convey("Given the affordability simulation", t, func() {
		Convey("Current XP covers the cost", func() {
			So(progression.Affordable(100, 1, 50), ShouldBeTrue)
		})

		Convey("Level 1 with 10 XP cannot absorb 1000", func() {
			So(progression.Affordable(10, 1, 1000), ShouldBeFalse)
		})

		Convey("Level 2 with 50 XP absorbs 400 by dropping to level 1", func() {
			So(progression.Affordable(50, 2, 400), ShouldBeTrue)
		})

		Convey("Zero or negative cost is always affordable", func() {
			So(progression.Affordable(0, 1, 0), ShouldBeTrue)
			So(progression.Affordable(0, 1, -5), ShouldBeTrue)
		})
	})
}

func TestDebit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ledger", t, func() {
		store := newMemStore()
		ledger := progression.New(store)

		Convey("Debit rejects an unaffordable cost without persisting", func() {
			store.seed(1, 10, 1)
			_, err := ledger.Debit(ctx, 1, 1000)
			So(err, ShouldEqual, progression.ErrInsufficientFunds)

			xp, lvl, _ := store.Progress(ctx, 1)
			So(xp, ShouldEqual, 10)
			So(lvl, ShouldEqual, 1)
		})

		Convey("Debit applies an affordable cost, cascading if needed", func() {
			store.seed(2, 50, 2)
			tr, err := ledger.Debit(ctx, 2, 400)
			So(err, ShouldBeNil)
			So(tr.NewLevel, ShouldEqual, 1)
			So(tr.XP, ShouldEqual, 150)
		})

		Convey("Debit rejects non-positive costs", func() {
			_, err := ledger.Debit(ctx, 3, 0)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	Convey("Given two seeded actors", t, func() {
		store := newMemStore()
		ledger := progression.New(store)
		store.seed(10, 100, 2)
		store.seed(20, 30, 1)

		Convey("Transfer credits the winner and debits the loser", func() {
			win, lose, err := ledger.Transfer(ctx, 10, 20, 50)
			So(err, ShouldBeNil)
			So(win.XP, ShouldEqual, 150)
			So(lose.XP, ShouldEqual, 0) // 30-50 clamps at the floor
			So(lose.NewLevel, ShouldEqual, 1)
		})

		Convey("Concurrent transfers between the same pair do not lose updates", func() {
			store.seed(10, 0, 3)
			store.seed(20, 0, 3)
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, _, _ = ledger.Transfer(ctx, 10, 20, 10)
				}()
				go func() {
					defer wg.Done()
					_, _, _ = ledger.Transfer(ctx, 20, 10, 10)
				}()
			}
			wg.Wait()

			// Transfers net to zero; both actors keep their combined worth.
			xpA, lvlA, _ := store.Progress(ctx, 10)
			xpB, lvlB, _ := store.Progress(ctx, 20)
			So(lvlA, ShouldEqual, 3)
			So(lvlB, ShouldEqual, 3)
			So(xpA+xpB, ShouldEqual, 0)
		})
	})
}
