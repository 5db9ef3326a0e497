package testgames

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// resolvedRating pairs an account name with its resolved player id and
// rating state.
type resolvedRating struct {
	Name   string
	Player int64
	Rating RatingInfo
}

// retrieveRatings resolves every game participant's account name to a
// player id and fetches the rating, exercising the resolver and the
// rating read path together.
func retrieveRatings(ctx context.Context, config *Config, games []Game, stats *Stats) ([]resolvedRating, error) {
	names := uniqueNames(games)
	log.Printf("🏆 Resolving and rating %d accounts with %d workers...", len(names), config.Workers)

	client := newHTTPClient(config.Timeout)

	ratings := make([]resolvedRating, len(names))
	var (
		retrieved int64
		failed    int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	nameChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range nameChan {
				select {
				case <-ctx.Done():
					return
				default:
					name := names[index]
					rating, err := retrieveSingleRating(ctx, client, config.BaseURL, name)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to rate %s: %v", name, err)
						}
					} else {
						ratings[index] = rating
						atomic.AddInt64(&retrieved, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						log.Printf("\r🏆 Ratings: %d/%d retrieved (success: %d, failed: %d)",
							total, len(names), atomic.LoadInt64(&retrieved), atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	go func() {
		defer close(nameChan)
		for i := range names {
			select {
			case <-ctx.Done():
				return
			case nameChan <- i:
			}
		}
	}()

	wg.Wait()

	// Drop failed retrievals.
	valid := make([]resolvedRating, 0, len(ratings))
	for _, r := range ratings {
		if r.Name != "" {
			valid = append(valid, r)
		}
	}

	stats.PlayersResolved = len(valid)
	stats.RatingsRetrieved = len(valid)

	log.Printf(`✅ Rating retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(valid), int(atomic.LoadInt64(&failed)))

	return valid, nil
}

// retrieveSingleRating resolves one account name and fetches its rating.
func retrieveSingleRating(ctx context.Context, client *HTTPClient, baseURL, name string) (resolvedRating, error) {
	resolveURL := baseURL + "/resolve?input=" + url.QueryEscape(name)

	resp, err := client.Get(ctx, resolveURL)
	if err != nil {
		return resolvedRating{}, fmt.Errorf("resolve request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resolvedRating{}, fmt.Errorf("failed to read resolve response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return resolvedRating{}, fmt.Errorf("resolve HTTP %d: %s", resp.StatusCode, string(body))
	}

	var res ResolveResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return resolvedRating{}, fmt.Errorf("failed to parse resolve response: %w", err)
	}
	if res.Status != "resolved" {
		return resolvedRating{}, fmt.Errorf("account %s did not resolve: %s", name, res.Status)
	}

	ratingURL := fmt.Sprintf("%s/rating/%d", baseURL, res.Player)
	resp, err = client.Get(ctx, ratingURL)
	if err != nil {
		return resolvedRating{}, fmt.Errorf("rating request failed: %w", err)
	}
	body, err = readResponseBody(resp)
	if err != nil {
		return resolvedRating{}, fmt.Errorf("failed to read rating response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return resolvedRating{}, fmt.Errorf("rating HTTP %d: %s", resp.StatusCode, string(body))
	}

	var rating RatingInfo
	if err := json.Unmarshal(body, &rating); err != nil {
		return resolvedRating{}, fmt.Errorf("failed to parse rating response: %w", err)
	}

	return resolvedRating{Name: name, Player: res.Player, Rating: rating}, nil
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard []Entry
	if err := json.Unmarshal(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("✅ Retrieved %d leaderboard entries", len(leaderboard))

	return leaderboard, nil
}

// uniqueNames collects the distinct account names across all games.
func uniqueNames(games []Game) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for i := range games {
		for j := range games[i].Participants {
			name := games[i].Participants[j].AccountName
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}
