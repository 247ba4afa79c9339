package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/aggregator"
	"github.com/personaverse/discovery/internal/db"
	"github.com/personaverse/discovery/pkg/config"
	"github.com/personaverse/discovery/pkg/logging"
	"github.com/personaverse/discovery/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Discovery Metrics Aggregator")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to the database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run the cadence loop until interrupted
	ctx, cancel := context.WithCancel(context.Background())
	runner := aggregator.NewRunner(cfg, database)

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down aggregator...")
		cancel()
		<-done
	case err := <-done:
		if err != nil && err != context.Canceled {
			logger.Fatal("Aggregator stopped unexpectedly", zap.Error(err))
		}
	}

	logger.Info("Aggregator exited")
}
