package config

import (
	"context"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := New()

		Convey("Then the moderation defaults match the deployed behavior", func() {
			So(cfg.WarnLimit, ShouldEqual, 3)
			So(cfg.FloodDecayRate, ShouldEqual, 0.5)
			So(cfg.FloodMaxScore, ShouldEqual, 10.0)
			So(cfg.FloodWarnScore, ShouldEqual, 6.0)
			So(cfg.FloodSimilarity, ShouldEqual, 0.75)
			So(cfg.FilterSimilarity, ShouldEqual, 0.85)
		})

		Convey("And the progression defaults are set", func() {
			So(cfg.XPPerMessage, ShouldEqual, 5)
			So(cfg.XPReputation, ShouldEqual, 150)
			So(cfg.DuelMinStake, ShouldEqual, 10)
			So(cfg.ReputationDailyCap, ShouldEqual, 3)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		So(os.Setenv("KEEPER_ADDR", ":7070"), ShouldBeNil)
		So(os.Setenv("KEEPER_WARN_LIMIT", "5"), ShouldBeNil)
		defer func() {
			_ = os.Unsetenv("KEEPER_ADDR")
			_ = os.Unsetenv("KEEPER_WARN_LIMIT")
		}()

		Convey("When loading", func() {
			cfg, err := Load(context.Background())

			Convey("Then env values win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.WarnLimit, ShouldEqual, 5)
				// Untouched fields keep their defaults.
				So(cfg.DuelMinStake, ShouldEqual, 10)
			})
		})
	})

	Convey("Given an invalid warn limit", t, func() {
		So(os.Setenv("KEEPER_WARN_LIMIT", "0"), ShouldBeNil)
		defer func() { _ = os.Unsetenv("KEEPER_WARN_LIMIT") }()

		Convey("When loading", func() {
			_, err := Load(context.Background())

			Convey("Then validation rejects it", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
