// Package main implements the entry point for the XP API server
// which tracks experience points, levels, and bones for learners on
// the platform.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/studyforge/xp-api/internal/config"
	"github.com/studyforge/xp-api/internal/platform/logger"
)

// main is the entry point for the xp-api server.
// It initializes configuration, sets up logging, establishes the
// database connection, applies migrations, wires dependencies, and
// starts the HTTP server.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(context.Background(), router); err != nil {
		app.logger.Error("Server exited with error", "error", err)
		app.cleanup()
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newApplication(cfg, appLogger, db), nil
}
