// Command pipeline runs the daily news sentiment batch, either once or on a
// cron schedule in daemon mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/pipeline"
	"news-sentiment-pipeline/internal/snapshot"
	"news-sentiment-pipeline/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	daemon := flag.Bool("daemon", false, "run on the configured cron schedule instead of once")
	flag.Parse()

	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, *daemon); err != nil {
		logger.ErrorWithErr(context.Background(), "Pipeline exited with error", err)
		os.Exit(1)
	}
}

func run(configPath string, daemon bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Shutdown(context.Background())

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	registry, err := store.LoadRegistry(cfg.TickersFile)
	if err != nil {
		return fmt.Errorf("load tickers: %w", err)
	}

	// One pipeline process per data directory. A second invocation while a
	// run is in flight exits instead of corrupting shared tables.
	lock := flock.New(filepath.Join(cfg.LogsDir(), "pipeline.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another pipeline run is already in progress")
	}
	defer lock.Unlock()

	snaps, err := snapshot.Open(cfg.SnapshotDBPath())
	if err != nil {
		return err
	}
	defer snaps.Close()

	p := pipeline.New(cfg, registry, snaps)
	logger.Info(ctx, "Pipeline initialized",
		"tickers", len(registry.Tickers()),
		"models", len(cfg.Sentiment.Models),
		"daemon", daemon)

	if !daemon {
		return p.Run(ctx)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := p.Run(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Scheduled run failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	logger.Info(ctx, "Scheduler started", "schedule", cfg.Schedule)
	<-ctx.Done()

	logger.Info(context.Background(), "Shutting down scheduler")
	<-c.Stop().Done()
	return nil
}
