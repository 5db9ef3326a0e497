package stats_test

import (
	"math"
	"testing"

	stats "github.com/halloway/vigil/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWinrate(t *testing.T) {
	Convey("Given winrate tallies", t, func() {
		Convey("When recording results", func() {
			w := stats.Winrate{}
			w = w.Record(true)
			w = w.Record(false)
			w = w.Record(true)

			Convey("Then wins and games accumulate", func() {
				So(w.Wins, ShouldEqual, 2)
				So(w.Games, ShouldEqual, 3)
			})
		})

		Convey("When adding two tallies", func() {
			sum := stats.Winrate{Wins: 3, Games: 5}.Add(stats.Winrate{Wins: 1, Games: 4})

			Convey("Then components add up", func() {
				So(sum, ShouldResemble, stats.Winrate{Wins: 4, Games: 9})
			})
		})

		Convey("When comparing sparse and established records", func() {
			sparse := stats.Winrate{Wins: 2, Games: 2}       // 100% of 2
			steady := stats.Winrate{Wins: 70, Games: 100}    // 70% of 100
			empty := stats.Winrate{}

			Convey("Then the lower bound favors the established record", func() {
				So(sparse.LowerBound(), ShouldBeLessThan, steady.LowerBound())
				So(sparse.Less(steady), ShouldBeTrue)
			})

			Convey("And an empty tally sorts below everything", func() {
				So(math.IsInf(empty.LowerBound(), -1), ShouldBeTrue)
				So(empty.Less(sparse), ShouldBeTrue)
				So(empty.Centre(), ShouldEqual, 0)
			})
		})

		Convey("When the interval is computed", func() {
			w := stats.Winrate{Wins: 50, Games: 100}

			Convey("Then the centre stays inside (0,1) and brackets the raw average", func() {
				So(w.Centre(), ShouldBeGreaterThan, 0.4)
				So(w.Centre(), ShouldBeLessThan, 0.6)
				So(w.LowerBound(), ShouldBeLessThan, w.Centre())
				So(w.LowerBound(), ShouldBeGreaterThan, 0)
			})
		})
	})
}
