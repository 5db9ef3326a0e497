package testgames

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/halloway/vigil/pkg/logger"
)

// Roster and game shape constants.
const (
	gameSize       = 10
	teamSize       = gameSize / 2
	handlePrefix   = "hunter_"
	handleIDLength = 8
	sawHuntDivisor = 5 // roughly one in five appearances sees a hunt
)

// Role pools per faction.
var (
	townRoles  = []string{"seer", "hunter", "villager", "medium", "jailer"}
	covenRoles = []string{"witch", "necromancer", "poisoner", "hexmaster", "ritualist"}
)

// randomInt returns a random integer in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateRoster creates the account names games draw from. Reusing a
// fixed roster across games is what accumulates alias weight and makes
// ratings converge, the same shape real traffic has.
func generateRoster(numPlayers int) []string {
	roster := make([]string, numPlayers)
	for i := range roster {
		id := strings.ReplaceAll(uuid.New().String(), "-", "")
		roster[i] = handlePrefix + id[:handleIDLength]
	}
	return roster
}

// generateGames creates the specified number of games over a shared
// roster. Timecodes are strictly increasing so replay order is stable.
func generateGames(ctx context.Context, config *Config, stats *Stats) ([]Game, error) {
	logger.Get().Info(ctx, "generating games over a shared roster",
		logger.Int("numGames", config.NumGames),
		logger.Int("numPlayers", config.NumPlayers))

	roster := generateRoster(config.NumPlayers)
	base := time.Now().Unix() - int64(config.NumGames)

	games := make([]Game, config.NumGames)
	for i := range games {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		games[i] = generateSingleGame(roster, base+int64(i))
	}

	stats.GamesGenerated = len(games)
	logger.Get().Info(ctx, "generated games successfully", logger.Int("count", len(games)))

	return games, nil
}

// generateSingleGame draws a distinct set of participants from the
// roster, splits them into two factions, and picks a winning side.
func generateSingleGame(roster []string, timecode int64) Game {
	picked := pickDistinct(roster, gameSize)
	townWins := randomInt(2) == 0

	participants := make([]Participant, gameSize)
	for i, name := range picked {
		town := i < teamSize
		faction := "coven"
		roles := covenRoles
		if town {
			faction = "town"
			roles = townRoles
		}
		role := roles[randomInt(int64(len(roles)))]
		participants[i] = Participant{
			AccountName:  name,
			StartingRole: role,
			EndingRole:   role,
			Faction:      faction,
			Won:          town == townWins,
			SawHunt:      randomInt(sawHuntDivisor) == 0,
		}
	}

	return Game{
		GameID:          uuid.New().String(),
		Timecode:        timecode,
		AnalysisVersion: 1,
		Participants:    participants,
	}
}

// pickDistinct selects n distinct names from the roster by partial
// Fisher-Yates over a copy.
func pickDistinct(roster []string, n int) []string {
	if n > len(roster) {
		n = len(roster)
	}
	pool := make([]string, len(roster))
	copy(pool, roster)
	for i := 0; i < n; i++ {
		j := i + int(randomInt(int64(len(pool)-i)))
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
