package main

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/studyforge/xp-api/internal/config"
	"github.com/studyforge/xp-api/internal/platform/metrics"
	"github.com/studyforge/xp-api/internal/platform/postgres"
	"github.com/studyforge/xp-api/internal/service/leveling"
	"github.com/studyforge/xp-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	ledgerStore  store.LedgerStore
	xpStateStore store.XPStateStore

	// Service interfaces
	levelingService leveling.Service

	// Observability
	metricsRegistry *prometheus.Registry
	metrics         *metrics.Metrics
}

// newApplication wires the stores, services, and instrumentation on top
// of an established database connection.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) *application {
	ledgerStore := postgres.NewPostgresLedgerStore(db, logger)
	xpStateStore := postgres.NewPostgresXPStateStore(db, logger)

	levelingService := leveling.NewService(db, ledgerStore, xpStateStore, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	return &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		ledgerStore:     ledgerStore,
		xpStateStore:    xpStateStore,
		levelingService: levelingService,
		metricsRegistry: registry,
		metrics:         metrics.New(registry),
	}
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
