package filter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chatkeeper/keeper/internal/domain/filter"
	. "github.com/smartystreets/goconvey/convey"
)

type stubLists struct {
	banned  []string
	allowed []string
	err     error
}

func (s *stubLists) Banned(context.Context) ([]string, error)    { return s.banned, s.err }
func (s *stubLists) AllowList(context.Context) ([]string, error) { return s.allowed, s.err }

func TestNormalize(t *testing.T) {
	Convey("Leetspeak substitutions collapse to plain letters", t, func() {
		So(filter.Normalize("h3ll0"), ShouldEqual, "hello")
		So(filter.Normalize("FR33"), ShouldEqual, "free")
		So(filter.Normalize("c4$ino"), ShouldEqual, "casino")
		So(filter.Normalize("f_r.e-e"), ShouldEqual, "free")
		So(filter.Normalize("привет"), ShouldEqual, "привет")
	})
}

func TestBannedPhrases(t *testing.T) {
	ctx := context.Background()

	Convey("Given a filter with banned phrases", t, func() {
		lists := &stubLists{banned: []string{"hello", "ad", "casino"}}
		f := filter.New(lists)

		Convey("A leet-disguised phrase matches via the boundary pattern", func() {
			v, err := f.Check(ctx, "well h3ll0 there")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, filter.ViolationBannedWord)
		})

		Convey("The phrase matches at the start and end of text", func() {
			v, _ := f.Check(ctx, "hello everyone")
			So(v, ShouldEqual, filter.ViolationBannedWord)
			v, _ = f.Check(ctx, "everyone said hello")
			So(v, ShouldEqual, filter.ViolationBannedWord)
		})

		Convey("Punctuation still bounds the phrase", func() {
			v, _ := f.Check(ctx, "ну hello!")
			So(v, ShouldEqual, filter.ViolationBannedWord)
		})

		Convey("Short phrases require exact token equality", func() {
			v, _ := f.Check(ctx, "this ad is paid")
			So(v, ShouldEqual, filter.ViolationBannedWord)

			v, _ = f.Check(ctx, "these ads are paid")
			So(v, ShouldEqual, filter.ViolationNone)
		})

		Convey("Longer phrases match fuzzily above the threshold", func() {
			v, _ := f.Check(ctx, "join the cassino tonight")
			So(v, ShouldEqual, filter.ViolationBannedWord)

			v, _ = f.Check(ctx, "join the card game tonight")
			So(v, ShouldEqual, filter.ViolationNone)
		})

		Convey("A substring inside a longer word does not match", func() {
			v, _ := f.Check(ctx, "othello is a play")
			So(v, ShouldEqual, filter.ViolationNone)
		})

		Convey("Empty text passes", func() {
			v, err := f.Check(ctx, "")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, filter.ViolationNone)
		})
	})
}

func TestLinkPass(t *testing.T) {
	ctx := context.Background()

	Convey("Given a filter with an allow list", t, func() {
		lists := &stubLists{
			banned:  []string{"casino"},
			allowed: []string{"example.com", "t.me/ourchannel"},
		}
		f := filter.New(lists)

		Convey("An explicit URL outside the allow list is advertising", func() {
			v, _ := f.Check(ctx, "join https://spam.site/win now")
			So(v, ShouldEqual, filter.ViolationAdvertising)
		})

		Convey("A bare domain is advertising too", func() {
			v, _ := f.Check(ctx, "visit spam.ru for prizes")
			So(v, ShouldEqual, filter.ViolationAdvertising)
		})

		Convey("Telegram invite links are caught", func() {
			v, _ := f.Check(ctx, "t.me/spamchannel")
			So(v, ShouldEqual, filter.ViolationAdvertising)
		})

		Convey("Allow-listed links pass the link pass", func() {
			v, _ := f.Check(ctx, "docs at https://example.com/help")
			So(v, ShouldEqual, filter.ViolationNone)

			v, _ = f.Check(ctx, "our channel: t.me/ourchannel")
			So(v, ShouldEqual, filter.ViolationNone)
		})

		Convey("The link pass wins over the banned-word pass", func() {
			v, _ := f.Check(ctx, "casino at https://spam.site")
			So(v, ShouldEqual, filter.ViolationAdvertising)
		})

		Convey("An allow-listed link does not shield a banned word", func() {
			v, _ := f.Check(ctx, "casino news on example.com")
			So(v, ShouldEqual, filter.ViolationBannedWord)
		})

		Convey("Plain text never triggers the link pass", func() {
			v, _ := f.Check(ctx, "an ordinary message")
			So(v, ShouldEqual, filter.ViolationNone)
		})
	})

	Convey("List provider failures surface as errors", t, func() {
		f := filter.New(&stubLists{err: errors.New("backend down")})
		_, err := f.Check(ctx, "anything at all")
		So(err, ShouldNotBeNil)
	})
}
