package config_test

import (
	"runtime"
	"testing"

	"github.com/halloway/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "vigil.db")
			convey.So(cfg.GameQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.DefaultLeaderboardLimit, convey.ShouldEqual, 25)
			convey.So(cfg.MaxSearchResults, convey.ShouldEqual, 20)
			convey.So(cfg.MaxSearchDistance, convey.ShouldEqual, 3)
		})
	})
}
