package nameindex_test

import (
	"fmt"
	"testing"

	nameindex "github.com/halloway/vigil/internal/domain/nameindex"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIndex_InsertAndLookup(t *testing.T) {
	Convey("Given an empty index", t, func() {
		idx := nameindex.New()

		Convey("When an alias is registered", func() {
			So(idx.InsertAlias("Wolfie", 7), ShouldBeNil)

			Convey("Then it is visible immediately, case-insensitively", func() {
				e, ok := idx.Lookup("wolfie")
				So(ok, ShouldBeTrue)
				So(e.Owner, ShouldEqual, 7)
				So(e.Weight, ShouldEqual, 0)

				e, ok = idx.Lookup("WOLFIE")
				So(ok, ShouldBeTrue)
				So(e.Alias, ShouldEqual, "Wolfie")
			})

			Convey("And re-registering for the same owner is a no-op", func() {
				So(idx.InsertAlias("wolfie", 7), ShouldBeNil)
				So(idx.Size(), ShouldEqual, 1)
			})

			Convey("And registering for a different owner fails", func() {
				So(idx.InsertAlias("Wolfie", 8), ShouldEqual, nameindex.ErrAliasTaken)
			})
		})

		Convey("When an empty alias is registered", func() {
			So(idx.InsertAlias("   ", 1), ShouldEqual, nameindex.ErrEmptyAlias)
		})
	})
}

func TestIndex_IncrementUsage(t *testing.T) {
	Convey("Given an index", t, func() {
		idx := nameindex.New()

		Convey("When usage arrives before registration", func() {
			idx.IncrementUsage("Wolfie")
			idx.IncrementUsage("wolfie")

			Convey("Then the entry is created lazily and increments are not dropped", func() {
				So(idx.Weight("Wolfie"), ShouldEqual, 2)
				e, ok := idx.Lookup("Wolfie")
				So(ok, ShouldBeTrue)
				So(e.Owner, ShouldEqual, 0)
			})

			Convey("And later registration keeps the accumulated weight", func() {
				So(idx.InsertAlias("Wolfie", 3), ShouldBeNil)
				e, _ := idx.Lookup("Wolfie")
				So(e.Owner, ShouldEqual, 3)
				So(e.Weight, ShouldEqual, 2)
			})
		})

		Convey("When usage arrives after registration", func() {
			So(idx.InsertAlias("Badger", 5), ShouldBeNil)
			idx.IncrementUsage("badger")

			Convey("Then weight tracks appearance count", func() {
				So(idx.Weight("Badger"), ShouldEqual, 1)
			})
		})
	})
}

func TestIndex_Search(t *testing.T) {
	Convey("Given an index with weighted aliases", t, func() {
		idx := nameindex.New()
		So(idx.InsertAlias("Wolfie", 1), ShouldBeNil)
		So(idx.InsertAlias("Wolfia", 2), ShouldBeNil)
		So(idx.InsertAlias("Badger", 3), ShouldBeNil)
		for i := 0; i < 12; i++ {
			idx.IncrementUsage("Wolfie")
		}
		idx.IncrementUsage("Wolfia")

		Convey("When searching near 'Wolfy'", func() {
			results := idx.Search("Wolfy", 5)

			Convey("Then the heavier alias ranks above an equally distant lighter one", func() {
				So(len(results), ShouldBeGreaterThanOrEqualTo, 2)
				So(results[0].Alias, ShouldEqual, "Wolfie")
				So(results[0].Weight, ShouldEqual, 12)
				So(results[1].Alias, ShouldEqual, "Wolfia")
			})

			Convey("And unrelated aliases beyond the threshold are absent", func() {
				for _, c := range results {
					So(c.Alias, ShouldNotEqual, "Badger")
				}
			})
		})

		Convey("When searching for an exact alias", func() {
			results := idx.Search("wolfie", 5)

			Convey("Then distance zero ranks first", func() {
				So(results[0].Alias, ShouldEqual, "Wolfie")
				So(results[0].Distance, ShouldEqual, 0)
			})
		})

		Convey("When k limits the result set", func() {
			results := idx.Search("Wolfy", 1)
			So(len(results), ShouldEqual, 1)
			So(results[0].Alias, ShouldEqual, "Wolfie")
		})

		Convey("When the query is empty or k is zero", func() {
			So(idx.Search("", 5), ShouldBeNil)
			So(idx.Search("Wolfy", 0), ShouldBeNil)
		})
	})
}

func TestIndex_Threshold(t *testing.T) {
	Convey("Given an index with the default distance cap", t, func() {
		idx := nameindex.New()

		Convey("Then the threshold grows with query length and stays capped", func() {
			So(idx.Threshold("ab"), ShouldEqual, 1)
			So(idx.Threshold("abcdefgh"), ShouldEqual, 3)
			So(idx.Threshold("abcdefghijklmnopqrstuvwxyz"), ShouldEqual, 3)
		})

		Convey("And a custom cap applies", func() {
			tight := nameindex.New(nameindex.WithMaxDistance(1))
			So(tight.Threshold("abcdefgh"), ShouldEqual, 1)
		})
	})
}

func TestIndex_TieBreakByAlias(t *testing.T) {
	Convey("Given equally distant, equally weighted aliases", t, func() {
		idx := nameindex.New()
		So(idx.InsertAlias("mira", 1), ShouldBeNil)
		So(idx.InsertAlias("mirb", 2), ShouldBeNil)

		Convey("Then ordering is stable by alias ascending", func() {
			first := idx.Search("mirc", 5)
			second := idx.Search("mirc", 5)
			So(first, ShouldResemble, second)
			So(first[0].Alias, ShouldEqual, "mira")
			So(first[1].Alias, ShouldEqual, "mirb")
		})
	})
}

func TestIndex_LargePopulation(t *testing.T) {
	Convey("Given many aliases", t, func() {
		idx := nameindex.New()
		for i := 0; i < 500; i++ {
			So(idx.InsertAlias(fmt.Sprintf("player%03d", i), int64(i+1)), ShouldBeNil)
		}

		Convey("Then search stays complete within the threshold", func() {
			results := idx.Search("player123", 3)
			So(len(results), ShouldEqual, 3)
			So(results[0].Alias, ShouldEqual, "player123")
			So(results[0].Distance, ShouldEqual, 0)
		})
	})
}
