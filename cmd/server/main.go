// Command server serves the read-only query API over the pipeline's unified
// output table.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/server"
	"news-sentiment-pipeline/internal/store"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Shutdown(context.Background())

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		logger.ErrorWithErr(context.Background(), "Failed to load config", err)
		os.Exit(1)
	}

	registry, err := store.LoadRegistry(cfg.TickersFile)
	if err != nil {
		logger.ErrorWithErr(context.Background(), "Failed to load tickers", err)
		os.Exit(1)
	}

	srv := server.New(cfg, registry)
	logger.Info(context.Background(), "Query API starting",
		"addr", cfg.Server.Addr, "tickers", len(registry.Tickers()))

	if err := srv.Run(); err != nil {
		logger.ErrorWithErr(context.Background(), "Server exited", err)
		os.Exit(1)
	}
}
