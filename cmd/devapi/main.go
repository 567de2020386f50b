package main

import (
	"fmt"
	"os"

	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/database"
	"github.com/fleettrack-dev/fleettrack/internal/devapi"
	"github.com/fleettrack-dev/fleettrack/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	db, err := database.Open(cfg.DevAPI.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	srv, err := devapi.New(cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create development backend")
	}

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Development backend failed")
	}
}
