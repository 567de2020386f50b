package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/database"
	"github.com/fleettrack-dev/fleettrack/internal/logger"
	"github.com/fleettrack-dev/fleettrack/internal/web"
	"github.com/fleettrack-dev/fleettrack/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	// Create server
	srv, err := web.New(cfg, db, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	sweeper, err := workers.NewSweepScheduler(srv, cfg.Session.SweepSchedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session sweeper")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	log.Info().Str("version", version).Str("fleet_source", cfg.Fleet.Source).Msg("Starting FleetTrack dashboard...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
