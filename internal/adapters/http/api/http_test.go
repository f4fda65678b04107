package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/chatkeeper/keeper/internal/adapters/http/api"
	"github.com/chatkeeper/keeper/internal/adapters/repository"
	"github.com/chatkeeper/keeper/internal/app"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemory()
	svc := app.New(store, nil)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRoutes(t *testing.T) {
	ctx := context.Background()

	Convey("Given a server over a populated store", t, func() {
		srv, store := newTestServer(t)
		store.EnsureActor(ctx, 1, "alice", "Alice")
		store.SetProgress(ctx, 1, 250, 3)
		store.EnsureActor(ctx, 2, "bob", "Bob")
		store.SetRank(ctx, 2, 4)

		Convey("healthz reports ok", func() {
			var body map[string]string
			So(getJSON(t, srv.URL+"/healthz", &body), ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("stats counts the population", func() {
			var body map[string]int
			So(getJSON(t, srv.URL+"/stats", &body), ShouldEqual, http.StatusOK)
			So(body["actors"], ShouldEqual, 2)
		})

		Convey("leaderboard orders and validates its limit", func() {
			var entries []map[string]any
			So(getJSON(t, srv.URL+"/leaderboard?limit=10", &entries), ShouldEqual, http.StatusOK)
			So(len(entries), ShouldEqual, 2)
			So(entries[0]["handle"], ShouldEqual, "alice")

			So(getJSON(t, srv.URL+"/leaderboard?limit=0", nil), ShouldEqual, http.StatusBadRequest)
			So(getJSON(t, srv.URL+"/leaderboard?limit=9999", nil), ShouldEqual, http.StatusBadRequest)
			So(getJSON(t, srv.URL+"/leaderboard", nil), ShouldEqual, http.StatusBadRequest)
		})

		Convey("staff lists ranked actors only", func() {
			var entries []map[string]any
			So(getJSON(t, srv.URL+"/staff", &entries), ShouldEqual, http.StatusOK)
			So(len(entries), ShouldEqual, 1)
			So(entries[0]["handle"], ShouldEqual, "bob")
		})

		Convey("actor profiles resolve by id with standing", func() {
			var body map[string]any
			So(getJSON(t, srv.URL+"/actors/1", &body), ShouldEqual, http.StatusOK)
			So(body["level"], ShouldEqual, 3)
			So(body["standing"], ShouldEqual, 1)

			So(getJSON(t, srv.URL+"/actors/42", nil), ShouldEqual, http.StatusNotFound)
			So(getJSON(t, srv.URL+"/actors/abc", nil), ShouldEqual, http.StatusBadRequest)
		})

		Convey("metrics exposes the prometheus registry", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
