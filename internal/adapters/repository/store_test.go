package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chatkeeper/keeper/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

// stores returns both implementations so every case runs against each.
func stores(t *testing.T) map[string]repository.Store {
	t.Helper()

	sqlite, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "keeper.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]repository.Store{
		"memory": repository.NewMemory(),
		"sqlite": sqlite,
	}
}

func TestActorDirectory(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		Convey("Given a "+name+" store", t, func() {
			Convey("EnsureActor creates lazily with level one and no XP", func() {
				a, err := store.EnsureActor(ctx, 1, "@Alice", "Alice A")
				So(err, ShouldBeNil)
				So(a.ID, ShouldEqual, 1)
				So(a.Handle, ShouldEqual, "alice")
				So(a.Level, ShouldEqual, 1)
				So(a.XP, ShouldEqual, 0)
			})

			Convey("EnsureActor refreshes identity on later sightings", func() {
				store.EnsureActor(ctx, 2, "@bob", "Bob")
				a, err := store.EnsureActor(ctx, 2, "@bobby", "Bobby")
				So(err, ShouldBeNil)
				So(a.Handle, ShouldEqual, "bobby")
				So(a.DisplayName, ShouldEqual, "Bobby")

				// Empty identity fields leave the stored values alone.
				a, _ = store.EnsureActor(ctx, 2, "", "")
				So(a.Handle, ShouldEqual, "bobby")
			})

			Convey("Actor and LookupHandle miss with ErrNotFound", func() {
				_, err := store.Actor(ctx, 999)
				So(err, ShouldWrap, repository.ErrNotFound)

				_, err = store.LookupHandle(ctx, "@nobody")
				So(err, ShouldWrap, repository.ErrNotFound)
			})

			Convey("LookupHandle strips the at-sign and lowercases", func() {
				store.EnsureActor(ctx, 3, "@Carol", "Carol")
				id, err := store.LookupHandle(ctx, "@CAROL")
				So(err, ShouldBeNil)
				So(id, ShouldEqual, 3)
			})

			Convey("SetRank persists and Staff orders by rank", func() {
				store.EnsureActor(ctx, 4, "dave", "Dave")
				store.EnsureActor(ctx, 5, "erin", "Erin")
				So(store.SetRank(ctx, 4, 2), ShouldBeNil)
				So(store.SetRank(ctx, 5, 4), ShouldBeNil)

				staff, err := store.Staff(ctx)
				So(err, ShouldBeNil)
				So(len(staff), ShouldEqual, 2)
				So(staff[0].ID, ShouldEqual, 5)
				So(staff[1].ID, ShouldEqual, 4)
			})
		})
	}
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		Convey("Given a "+name+" store with ranked progress", t, func() {
			store.EnsureActor(ctx, 1, "a", "A")
			store.EnsureActor(ctx, 2, "b", "B")
			store.EnsureActor(ctx, 3, "c", "C")
			store.SetProgress(ctx, 1, 100, 3)
			store.SetProgress(ctx, 2, 400, 2)
			store.SetProgress(ctx, 3, 50, 2)

			Convey("TopActors orders by level then XP, both descending", func() {
				top, err := store.TopActors(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)
				So(top[0].ID, ShouldEqual, 1)
				So(top[1].ID, ShouldEqual, 2)
				So(top[2].ID, ShouldEqual, 3)

				top, _ = store.TopActors(ctx, 2)
				So(len(top), ShouldEqual, 2)
			})

			Convey("Standing is the 1-based position", func() {
				rank, err := store.Standing(ctx, 2)
				So(err, ShouldBeNil)
				So(rank, ShouldEqual, 2)

				rank, _ = store.Standing(ctx, 1)
				So(rank, ShouldEqual, 1)

				_, err = store.Standing(ctx, 99)
				So(err, ShouldWrap, repository.ErrNotFound)
			})

			Convey("ActorCount sees every known actor", func() {
				n, err := store.ActorCount(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})
	}
}

func TestWarnAndReputationState(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		Convey("Given a "+name+" store", t, func() {
			store.EnsureActor(ctx, 1, "a", "A")

			Convey("Warn state round-trips, unknown actors read clean", func() {
				count, reasons, err := store.WarnState(ctx, 999)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
				So(reasons, ShouldBeEmpty)

				So(store.SetWarnState(ctx, 1, 2, []string{"spam", "links"}), ShouldBeNil)
				count, reasons, err = store.WarnState(ctx, 1)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2)
				So(reasons, ShouldResemble, []string{"spam", "links"})

				So(store.SetWarnState(ctx, 1, 0, nil), ShouldBeNil)
				count, reasons, _ = store.WarnState(ctx, 1)
				So(count, ShouldEqual, 0)
				So(reasons, ShouldBeEmpty)
			})

			Convey("Reputation grants record and count per granter and day", func() {
				store.EnsureActor(ctx, 2, "b", "B")

				ok, err := store.ReputationGrantExists(ctx, 1, 2, "2024-03-01")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)

				So(store.RecordReputationGrant(ctx, 1, 2, "2024-03-01"), ShouldBeNil)
				ok, _ = store.ReputationGrantExists(ctx, 1, 2, "2024-03-01")
				So(ok, ShouldBeTrue)

				n, err := store.ReputationGrantsOn(ctx, 1, "2024-03-01")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)

				n, _ = store.ReputationGrantsOn(ctx, 1, "2024-03-02")
				So(n, ShouldEqual, 0)

				rep, err := store.Reputation(ctx, 2)
				So(err, ShouldBeNil)
				So(rep, ShouldEqual, 1)
			})

			Convey("Wipe dates round-trip and default to empty", func() {
				day, err := store.LastWipe(ctx, 999)
				So(err, ShouldBeNil)
				So(day, ShouldEqual, "")

				So(store.SetLastWipe(ctx, 1, "2024-03-01"), ShouldBeNil)
				day, _ = store.LastWipe(ctx, 1)
				So(day, ShouldEqual, "2024-03-01")
			})
		})
	}
}

func TestPhraseLists(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		Convey("Given a "+name+" store", t, func() {
			Convey("Lists store lowercased unique items", func() {
				So(store.AddListItem(ctx, repository.ListBanned, "Casino"), ShouldBeNil)
				So(store.AddListItem(ctx, repository.ListBanned, "casino"), ShouldBeNil)
				So(store.AddListItem(ctx, repository.ListAllow, "example.com"), ShouldBeNil)

				banned, err := store.List(ctx, repository.ListBanned)
				So(err, ShouldBeNil)
				So(banned, ShouldResemble, []string{"casino"})

				allowed, _ := store.List(ctx, repository.ListAllow)
				So(allowed, ShouldResemble, []string{"example.com"})
			})

			Convey("Removal deletes the item", func() {
				store.AddListItem(ctx, repository.ListBanned, "spamword")
				So(store.RemoveListItem(ctx, repository.ListBanned, "SPAMWORD"), ShouldBeNil)

				banned, _ := store.List(ctx, repository.ListBanned)
				So(banned, ShouldNotContain, "spamword")
			})

			Convey("Unknown list kinds are rejected", func() {
				_, err := store.List(ctx, repository.ListKind("bogus"))
				So(err, ShouldWrap, repository.ErrUnknownList)
			})
		})
	}
}
