package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/duckhunt/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.PlayerDefaults.Accuracy, convey.ShouldEqual, 75)
			convey.So(cfg.PlayerDefaults.BulletsPerMagazine, convey.ShouldEqual, 6)
			convey.So(cfg.Gameplay.MinBefriendRate, convey.ShouldEqual, 5)
			convey.So(cfg.Gameplay.MaxBefriendRate, convey.ShouldEqual, 95)
			convey.So(cfg.DuckTypes["explosive"].EffectSeconds, convey.ShouldEqual, 7200)
			convey.So(cfg.DuckTypes["radioactive"].EffectSeconds, convey.ShouldEqual, 8*3600)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When spawn bounds are inverted", func() {
			cfg.Spawn.MinSeconds, cfg.Spawn.MaxSeconds = 50, 10

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "spawn.max_seconds")
			})
		})

		convey.Convey("When a duck kind is unknown", func() {
			cfg.DuckTypes["platypus"] = config.DuckType{Chance: 0.01, MinHP: 1, MaxHP: 1, TimeoutMinSeconds: 1, TimeoutMaxSeconds: 1}

			convey.Convey("Then the schema rejects it", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a chance is negative", func() {
			dt := cfg.DuckTypes["fast"]
			dt.Chance = -0.1
			cfg.DuckTypes["fast"] = dt

			convey.Convey("Then the schema rejects it", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When normal is given an explicit chance", func() {
			dt := cfg.DuckTypes["normal"]
			dt.Chance = 0.1
			cfg.DuckTypes["normal"] = dt

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a sleep window is malformed", func() {
			cfg.Spawn.SleepWindows = []config.SleepWindow{{Start: "25:00", End: "07:00"}}

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the level table does not start at zero", func() {
			cfg.Levels[0].MinDucks = 3

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the timezone is set", func() {
			cfg.Timezone = "UTC"

			convey.Convey("Then it resolves", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				convey.So(cfg.Location(), convey.ShouldEqual, time.UTC)
			})
		})
	})
}
