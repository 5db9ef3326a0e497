package rating_test

import (
	"testing"

	rating "github.com/halloway/vigil/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEngine_Rate(t *testing.T) {
	Convey("Given a rating engine with default parameters", t, func() {
		engine := rating.New()

		Convey("When two fresh players play and one wins", func() {
			participants := []rating.Participant{
				{Prior: rating.Default(), Won: true},
				{Prior: rating.Default(), Won: false},
			}
			posteriors, err := engine.Rate(participants)

			Convey("Then the winner's mu strictly increases above the default prior", func() {
				So(err, ShouldBeNil)
				So(posteriors[0].Mu, ShouldBeGreaterThan, rating.DefaultMu)
			})

			Convey("And the loser's mu strictly decreases", func() {
				So(err, ShouldBeNil)
				So(posteriors[1].Mu, ShouldBeLessThan, rating.DefaultMu)
			})

			Convey("And both sigmas shrink", func() {
				So(err, ShouldBeNil)
				So(posteriors[0].Sigma, ShouldBeLessThan, rating.DefaultSigma)
				So(posteriors[1].Sigma, ShouldBeLessThan, rating.DefaultSigma)
				So(posteriors[0].Sigma, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When teams are uneven", func() {
			participants := []rating.Participant{
				{Prior: rating.Default(), Won: true},
				{Prior: rating.Default(), Won: false},
				{Prior: rating.Default(), Won: false},
				{Prior: rating.Default(), Won: false},
			}
			posteriors, err := engine.Rate(participants)

			Convey("Then every participant still gets a posterior", func() {
				So(err, ShouldBeNil)
				So(len(posteriors), ShouldEqual, 4)
				So(posteriors[0].Mu, ShouldBeGreaterThan, rating.DefaultMu)
				for _, p := range posteriors[1:] {
					So(p.Mu, ShouldBeLessThan, rating.DefaultMu)
				}
			})
		})

		Convey("When a strong favorite beats a weak opponent", func() {
			favorite := rating.Rating{Mu: 40, Sigma: 2}
			underdog := rating.Rating{Mu: 10, Sigma: 2}
			posteriors, err := engine.Rate([]rating.Participant{
				{Prior: favorite, Won: true},
				{Prior: underdog, Won: false},
			})

			Convey("Then the favorite gains less than an even-odds winner would", func() {
				So(err, ShouldBeNil)
				even, evenErr := engine.Rate([]rating.Participant{
					{Prior: rating.Rating{Mu: 25, Sigma: 2}, Won: true},
					{Prior: rating.Rating{Mu: 25, Sigma: 2}, Won: false},
				})
				So(evenErr, ShouldBeNil)
				So(posteriors[0].Mu-favorite.Mu, ShouldBeLessThan, even[0].Mu-25)
				So(posteriors[0].Mu-favorite.Mu, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When an underdog upsets a favorite", func() {
			favorite := rating.Rating{Mu: 40, Sigma: 2}
			underdog := rating.Rating{Mu: 10, Sigma: 2}
			posteriors, err := engine.Rate([]rating.Participant{
				{Prior: underdog, Won: true},
				{Prior: favorite, Won: false},
			})

			Convey("Then the underdog gains more than an even-odds winner would", func() {
				So(err, ShouldBeNil)
				even, evenErr := engine.Rate([]rating.Participant{
					{Prior: rating.Rating{Mu: 25, Sigma: 2}, Won: true},
					{Prior: rating.Rating{Mu: 25, Sigma: 2}, Won: false},
				})
				So(evenErr, ShouldBeNil)
				So(posteriors[0].Mu-underdog.Mu, ShouldBeGreaterThan, even[0].Mu-25)
			})
		})

		Convey("When the same priors are rated twice", func() {
			participants := []rating.Participant{
				{Prior: rating.Default(), Won: true},
				{Prior: rating.Rating{Mu: 30, Sigma: 4}, Won: false},
			}
			first, err1 := engine.Rate(participants)
			second, err2 := engine.Rate(participants)

			Convey("Then the result is deterministic", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, second)
			})
		})

		Convey("When the game is one-sided", func() {
			_, err := engine.Rate([]rating.Participant{
				{Prior: rating.Default(), Won: true},
				{Prior: rating.Default(), Won: true},
			})

			Convey("Then it is rejected", func() {
				So(err, ShouldEqual, rating.ErrOneSided)
			})
		})

		Convey("When fewer than two participants are supplied", func() {
			_, err := engine.Rate([]rating.Participant{{Prior: rating.Default(), Won: true}})

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, rating.ErrTooFewParticipants)
			})
		})
	})
}

func TestRating_Ordinal(t *testing.T) {
	Convey("Given a rating", t, func() {
		r := rating.Rating{Mu: 25, Sigma: 25.0 / 3.0}

		Convey("Then the ordinal is exactly mu minus three sigma", func() {
			So(r.Ordinal(), ShouldAlmostEqual, 25-3*(25.0/3.0), 1e-12)
			So(rating.Default().Ordinal(), ShouldAlmostEqual, 0, 1e-12)
		})
	})
}

func TestEngine_Version(t *testing.T) {
	Convey("Given an engine", t, func() {
		Convey("Then it reports the fixed analysis version", func() {
			So(rating.New().Version(), ShouldEqual, rating.AnalysisVersion)
		})
	})
}
