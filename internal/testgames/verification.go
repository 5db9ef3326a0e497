package testgames

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults verifies the consistency of ratings and leaderboard.
func verifyResults(config *Config, ratings []resolvedRating, leaderboard []Entry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(ratings) == 0 {
		return fmt.Errorf("no ratings to verify")
	}

	// Every resolved account should have at least one rated game.
	unrated := 0
	for _, r := range ratings {
		if r.Rating.Default || r.Rating.Games == 0 {
			unrated++
		}
	}
	if unrated > 0 {
		log.Printf("⚠️  %d resolved accounts still report the default prior", unrated)
	}

	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(ratings, leaderboard); err != nil {
			log.Printf("⚠️  Leaderboard consistency warning: %v", err)
		} else {
			log.Println("✅ Leaderboard consistency verified")
		}
	}

	displayTopPerformers(ratings, leaderboard, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks ordering and dense-rank laws on
// the returned window, and that the top entry matches the best rating
// we retrieved independently.
func verifyLeaderboardConsistency(ratings []resolvedRating, leaderboard []Entry) error {
	if len(leaderboard) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	sorted := sortedByOrdinal(ratings)
	topRating := sorted[0]
	topEntry := leaderboard[0]

	if topRating.Player != topEntry.Player {
		return fmt.Errorf("top leaderboard entry (player %d) does not match best retrieved rating (player %d)",
			topEntry.Player, topRating.Player)
	}

	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].Ordinal > leaderboard[i-1].Ordinal {
			return fmt.Errorf("leaderboard not sorted: entry %d has higher ordinal than entry %d", i, i-1)
		}
		// Dense ranks never skip and only change when the ordinal does.
		if leaderboard[i].Ordinal == leaderboard[i-1].Ordinal {
			if leaderboard[i].Rank != leaderboard[i-1].Rank {
				return fmt.Errorf("tied ordinals at entries %d and %d have different ranks", i-1, i)
			}
		} else if leaderboard[i].Rank != leaderboard[i-1].Rank+1 {
			return fmt.Errorf("rank skips from %d to %d at entry %d", leaderboard[i-1].Rank, leaderboard[i].Rank, i)
		}
	}

	return nil
}

// displayTopPerformers shows the top performers from ratings and leaderboard.
func displayTopPerformers(ratings []resolvedRating, leaderboard []Entry, verbose bool) {
	sorted := sortedByOrdinal(ratings)

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("🏆 Top %d accounts by retrieved rating:", topN)
	for i := 0; i < topN; i++ {
		r := sorted[i]
		log.Printf("   %d. %s (player %d) - Ordinal: %.3f Games: %d", i+1, r.Name, r.Player, r.Rating.Ordinal, r.Rating.Games)
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("🥇 Top %d players from leaderboard:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			log.Printf("   %d. %s (player %d) - Ordinal: %.3f Rank: %d", i+1, entry.Name, entry.Player, entry.Ordinal, entry.Rank)
		}
	}

	if verbose && len(sorted) > 0 {
		avg := 0.0
		for _, r := range sorted {
			avg += r.Rating.Ordinal
		}
		avg /= float64(len(sorted))

		log.Printf(`📊 Ordinal statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, avg, sorted[0].Rating.Ordinal, sorted[len(sorted)-1].Rating.Ordinal)
	}
}

// sortedByOrdinal returns a copy of ratings sorted by ordinal descending.
func sortedByOrdinal(ratings []resolvedRating) []resolvedRating {
	sorted := make([]resolvedRating, len(ratings))
	copy(sorted, ratings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Rating.Ordinal > sorted[j].Rating.Ordinal
	})
	return sorted
}
