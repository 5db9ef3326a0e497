package testgames

import "time"

// Config holds configuration for the game load test.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumGames   int           // Number of games to generate
	NumPlayers int           // Size of the account roster games draw from
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for games
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Game mirrors the wire schema for POST /games.
type Game struct {
	GameID          string        `json:"game_id"`
	Timecode        int64         `json:"timecode"`
	AnalysisVersion int           `json:"analysis_version"`
	Participants    []Participant `json:"participants"`
}

// Participant is one player's slot in a submitted game.
type Participant struct {
	AccountName  string `json:"account_name"`
	StartingRole string `json:"starting_role"`
	EndingRole   string `json:"ending_role"`
	Faction      string `json:"faction"`
	Won          bool   `json:"won"`
	SawHunt      bool   `json:"saw_hunt"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank    int     `json:"rank"`
	Player  int64   `json:"player"`
	Name    string  `json:"name"`
	Ordinal float64 `json:"ordinal"`
	Mu      float64 `json:"mu"`
	Sigma   float64 `json:"sigma"`
}

// RatingInfo represents the response from rating lookups.
type RatingInfo struct {
	Player  int64   `json:"player"`
	Mu      float64 `json:"mu"`
	Sigma   float64 `json:"sigma"`
	Ordinal float64 `json:"ordinal"`
	Games   int     `json:"games"`
	Default bool    `json:"default"`
}

// ResolveResponse represents the response from GET /resolve.
type ResolveResponse struct {
	Status string `json:"status"`
	Player int64  `json:"player"`
}

// AckResponse represents the response from game submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics.
type Stats struct {
	GamesGenerated     int
	GamesSubmitted     int
	GamesSuccessful    int
	GamesDuplicate     int
	GamesFailed        int
	PlayersResolved    int
	RatingsRetrieved   int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
