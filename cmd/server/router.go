package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyforge/xp-api/internal/api"
	apiMiddleware "github.com/studyforge/xp-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(app.metrics.Middleware)

	xpHandler := api.NewXPHandler(app.levelingService, app.metrics, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/xp", xpHandler.GetState)
		r.Post("/xp/award", xpHandler.Award)
		r.Get("/xp/daily", xpHandler.GetDailySummary)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// Prometheus scrape endpoint backed by the application registry
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		app.metricsRegistry,
		promhttp.HandlerOpts{},
	))

	return r
}
