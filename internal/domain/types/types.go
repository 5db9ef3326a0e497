// Package types contains common types used across the application
package types

// Entry represents a leaderboard row.
type Entry struct {
	Rank    int     `json:"rank"`
	Player  int64   `json:"player"`
	Name    string  `json:"name,omitempty"`
	Ordinal float64 `json:"ordinal"`
	Mu      float64 `json:"mu"`
	Sigma   float64 `json:"sigma"`
}

// Winrate is one (faction, hunt) win/loss tally for a player.
type Winrate struct {
	Faction string `json:"faction"`
	SawHunt bool   `json:"saw_hunt"`
	Wins    int    `json:"wins"`
	Games   int    `json:"games"`
}

// RatingInfo is the read shape returned by rating lookups. Default is
// set when the player has no appearance yet and the documented prior is
// reported instead of a cached snapshot.
type RatingInfo struct {
	Player   int64     `json:"player"`
	Mu       float64   `json:"mu"`
	Sigma    float64   `json:"sigma"`
	Ordinal  float64   `json:"ordinal"`
	Games    int       `json:"games"`
	Hidden   bool      `json:"hidden"`
	Default  bool      `json:"default"`
	Winrates []Winrate `json:"winrates,omitempty"`
}

// Candidate is one approximate-name match returned by alias search.
type Candidate struct {
	Alias    string `json:"alias"`
	Player   int64  `json:"player,omitempty"`
	Distance int    `json:"distance"`
	Weight   int64  `json:"weight"`
}
