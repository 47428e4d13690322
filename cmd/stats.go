package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/uniseek/uniseek/pkg/api"
	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/config"
	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show cache and request statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Base URL of a running server to query for request metrics",
			},
			&cli.IntFlag{
				Name:  "window",
				Usage: "Metrics window in minutes",
				Value: 60,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(ctx, c.String("config"), c.String("server"), int(c.Int("window")))
		},
	}
}

// showStats prints counters from the shared cache backend and, when a
// server URL is given, the trailing-window request summary of that process.
// Request metrics live in the serving process only, so they are fetched
// over HTTP rather than read from the backend.
func showStats(ctx context.Context, configPath, serverURL string, window int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.RedisURL == "" && serverURL == "" {
		return fmt.Errorf("no redis_url configured and no --server given; the in-process cache is only visible to the serving process")
	}

	if cfg.RedisURL != "" {
		responseCache := cache.New(ctx, cache.Options{
			RedisURL:        cfg.RedisURL,
			ConnectAttempts: cfg.Cache.ConnectAttempts,
		})

		stats := responseCache.Stats(ctx)
		if stats.Backend != cache.BackendRemote {
			return fmt.Errorf("could not reach redis at %s", cfg.RedisURL)
		}

		fmt.Printf("Cache backend: %s\n", stats.Backend)
		fmt.Printf("Entries:       %d\n", stats.Size)
		fmt.Printf("Hits:          %d\n", stats.Hits)
		fmt.Printf("Misses:        %d\n", stats.Misses)
	}

	if serverURL == "" {
		return nil
	}

	body, err := fetchMetrics(ctx, serverURL, window)
	if err != nil {
		return fmt.Errorf("fetching server metrics: %w", err)
	}

	fmt.Printf("\nRequest metrics (last %d minutes, %d retained total):\n", body.Summary.WindowMinutes, body.Count)
	fmt.Printf("Requests:    %d\n", body.Summary.Count)
	fmt.Printf("Mean:        %.1fms\n", body.Summary.MeanMs)
	fmt.Printf("Median:      %.1fms\n", body.Summary.MedianMs)
	fmt.Printf("P95:         %.1fms\n", body.Summary.P95Ms)
	fmt.Printf("P99:         %.1fms\n", body.Summary.P99Ms)
	fmt.Printf("Cache hits:  %.1f%%\n", body.Summary.CacheHitRate*100)
	fmt.Printf("Compressed:  %.1f%%\n", body.Summary.CompressionRate*100)
	fmt.Printf("Errors:      %.1f%%\n", body.Summary.ErrorRate*100)
	for _, ep := range body.Summary.SlowestEndpoints {
		fmt.Printf("  %s  %.1fms mean over %d requests\n", ep.Endpoint, ep.MeanMs, ep.Count)
	}
	return nil
}

func fetchMetrics(ctx context.Context, serverURL string, window int) (*api.MetricsResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/api/metrics?window=%d", serverURL, window)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var body api.MetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding metrics response: %w", err)
	}
	return &body, nil
}
