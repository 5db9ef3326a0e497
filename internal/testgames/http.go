package testgames

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitGames submits games concurrently using worker pools.
func submitGames(ctx context.Context, config *Config, games []Game, stats *Stats) error {
	log.Printf("📤 Submitting %d games with %d workers...", len(games), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/games"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	gameChan := make(chan Game, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for game := range gameChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleGame(ctx, client, url, game)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(games), succ, dup, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(games), succ, dup, fail)
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(gameChan)
		for _, game := range games {
			select {
			case <-ctx.Done():
				return
			case gameChan <- game:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println()
	}

	stats.GamesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.GamesSuccessful = int(atomic.LoadInt64(&successful))
	stats.GamesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.GamesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Game submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.GamesSuccessful, stats.GamesDuplicate, stats.GamesFailed)

	return nil
}

// submitSingleGame submits a single game and returns the result.
func submitSingleGame(ctx context.Context, client *HTTPClient, url string, game Game) string {
	resp, err := client.Post(ctx, url, game)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Status == "accepted" {
			return "success"
		}
		return "success"
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}
