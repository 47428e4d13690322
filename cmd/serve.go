package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/uniseek/uniseek/pkg/api"
	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/compress"
	"github.com/uniseek/uniseek/pkg/config"
	"github.com/uniseek/uniseek/pkg/filter"
	"github.com/uniseek/uniseek/pkg/log"
	"github.com/uniseek/uniseek/pkg/metrics"
	"github.com/uniseek/uniseek/pkg/query"
	"github.com/uniseek/uniseek/pkg/realtime"
	"github.com/uniseek/uniseek/pkg/search"
	"github.com/uniseek/uniseek/pkg/source"
	"github.com/uniseek/uniseek/pkg/synonyms"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search HTTP service",
		Action: func(ctx context.Context, c *cli.Command) error {
			log.SetGlobalDebug(c.Bool("debug"))
			return serve(ctx, c.String("config"))
		},
	}
}

// serve runs the HTTP service until interrupted. SIGHUP or a config file
// change reloads the synonym tables in place; listener and backend changes
// need a restart.
func serve(ctx context.Context, configPath string) error {
	logger := log.ForComponent("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	src, err := source.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to catalog database: %w", err)
	}
	defer src.Close()

	if err := src.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring catalog schema: %w", err)
	}

	responseCache := cache.New(ctx, cache.Options{
		RedisURL:        cfg.RedisURL,
		ConnectAttempts: cfg.Cache.ConnectAttempts,
	})

	collector := metrics.NewCollector(metrics.Options{
		BufferSize:    cfg.Metrics.BufferSize,
		SlowThreshold: cfg.Metrics.SlowThreshold.Duration,
	})

	hub := realtime.NewHub(64)
	collector.SetObserver(hub.Publish)

	table := synonyms.NewTableWithExtras(cfg.Synonyms, cfg.Regions)
	service := search.NewService(
		query.NewExpander(table),
		filter.NewEngine(),
		responseCache,
		src,
		cfg.Cache.TTL.Duration,
	)

	negotiator := compress.NewNegotiator(compress.Options{
		Threshold:   cfg.Compression.Threshold,
		BrotliLevel: cfg.Compression.BrotliLevel,
		GzipLevel:   cfg.Compression.GzipLevel,
	})

	apiServer := api.NewServer(service, responseCache, collector, negotiator, hub)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.CorsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher, continuing without automatic reload: %v", err)
		watcher = nil
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
	}

	watchEvents, watchErrors := watchChannels(watcher)

	reload := func() {
		newCfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Errorf("reloading config: %v", err)
			return
		}
		service.SetExpander(query.NewExpander(synonyms.NewTableWithExtras(newCfg.Synonyms, newCfg.Regions)))
		logger.Infof("synonym tables reloaded")
	}

	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("serving http: %w", err)
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Infof("received SIGHUP, reloading configuration")
				reload()
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Infof("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutting down http server: %w", err)
				}
				return nil
			}
		case event, ok := <-watchEvents:
			if !ok {
				continue
			}
			// Editors often replace the file wholesale, so rename and
			// remove count as changes too.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					time.Sleep(200 * time.Millisecond)
					if _, err := os.Stat(configPath); os.IsNotExist(err) {
						logger.Warnf("config file removed and not replaced, skipping reload")
						continue
					}
					if err := watcher.Add(configPath); err != nil {
						logger.Warnf("failed to re-watch config file: %v", err)
					}
				} else {
					time.Sleep(100 * time.Millisecond)
				}
				logger.Infof("config file changed (%s), reloading", event.Op)
				reload()
			}
		case err, ok := <-watchErrors:
			if !ok {
				continue
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

// watchChannels exposes a watcher's channels to the event loop. With no
// watcher both channels are nil, so their select cases never fire and the
// loop keeps serving signals without reload support.
func watchChannels(watcher *fsnotify.Watcher) (chan fsnotify.Event, chan error) {
	if watcher == nil {
		return nil, nil
	}
	return watcher.Events, watcher.Errors
}
