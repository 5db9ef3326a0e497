package testgames

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/halloway/vigil/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete game load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting vigil game test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("games", config.NumGames),
		logger.Int("players", config.NumPlayers),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate games
	games, err := generateGames(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("game generation failed: %w", err)
	}

	// Step 3: Submit games concurrently
	if err := submitGames(ctx, config, games, stats); err != nil {
		return fmt.Errorf("game submission failed: %w", err)
	}

	// Step 4: Wait for the commit queue to drain
	logger.Get().Info(ctx, "waiting for games to be committed")
	time.Sleep(ProcessingDrainDelay)

	// Step 5: Resolve accounts and retrieve ratings concurrently
	ratings, err := retrieveRatings(ctx, config, games, stats)
	if err != nil {
		return fmt.Errorf("rating retrieval failed: %w", err)
	}

	// Step 6: Get leaderboard
	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, ratings, leaderboard, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save games to file
	if err := saveGamesToFile(ctx, config, games); err != nil {
		logger.Get().Warn(ctx, "failed to save games to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 response is healthy (the endpoint serves Prometheus metrics).
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveGamesToFile saves the generated games to a JSON file.
func saveGamesToFile(ctx context.Context, config *Config, games []Game) error {
	if len(games) == 0 {
		return fmt.Errorf("no games to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_games_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, game := range games {
		jsonData, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("failed to marshal game %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write game %d: %w", i, err)
		}

		if i < len(games)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "games saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, gamesPerSecond float64

	if stats.GamesSubmitted > 0 {
		successRate = float64(stats.GamesSuccessful) / float64(stats.GamesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		gamesPerSecond = float64(stats.GamesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("gamesGenerated", stats.GamesGenerated),
		logger.Int("gamesSubmitted", stats.GamesSubmitted),
		logger.Int("gamesSuccessful", stats.GamesSuccessful),
		logger.Int("gamesDuplicate", stats.GamesDuplicate),
		logger.Int("gamesFailed", stats.GamesFailed),
		logger.Int("playersResolved", stats.PlayersResolved),
		logger.Int("ratingsRetrieved", stats.RatingsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("gamesPerSecond", gamesPerSecond))
}
