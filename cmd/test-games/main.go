package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/halloway/vigil/internal/testgames"
)

// Default configuration constants.
const (
	defaultNumGames    = 5000
	defaultNumPlayers  = 500
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numGames   = flag.Int("games", defaultNumGames, "Number of games to generate and submit")
		numPlayers = flag.Int("players", defaultNumPlayers, "Size of the account roster games draw from")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated games (default: generated_games_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testgames.ShowHelp()
		return
	}

	if err := testgames.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testgames.Config{
		BaseURL:    *baseURL,
		NumGames:   *numGames,
		NumPlayers: *numPlayers,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := testgames.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
