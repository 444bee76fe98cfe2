package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skappel/farescout/internal/airports"
	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/jobs"
	"github.com/skappel/farescout/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, store core.JobStore, publisher core.QueuePublisher, worker *jobs.SearchWorker, metros *airports.Index, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		searchHandler := handler.NewSearchHandler(store, publisher, metros, logger)
		webhookHandler := handler.NewWebhookHandler(cfg, worker, logger)
		jobsHandler := handler.NewJobsHandler(store, logger)

		r.Post("/search", searchHandler.Handle)
		r.Post("/webhook/queue", webhookHandler.Handle)
		r.Get("/jobs", jobsHandler.List)
		r.Get("/jobs/{id}", jobsHandler.Get)
	})

	return r
}
