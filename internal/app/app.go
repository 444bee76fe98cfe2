// Package app initializes and orchestrates the main components of the
// FareScout service: the job store, the queue relay, and the HTTP server.
package app

import (
	"log/slog"

	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/queue"
	"github.com/skappel/farescout/internal/search"
	"github.com/skappel/farescout/internal/server"
	"github.com/skappel/farescout/internal/storage"
)

// App holds the main application components.
type App struct {
	Cfg         *config.Config
	Logger      *slog.Logger
	Store       core.JobStore
	Coordinator *search.Coordinator

	server *server.Server
	relay  *queue.Relay
	feed   *storage.NotificationFeed
}

// NewApp assembles the application from its wired dependencies.
func NewApp(
	cfg *config.Config,
	logger *slog.Logger,
	store core.JobStore,
	coordinator *search.Coordinator,
	srv *server.Server,
	relay *queue.Relay,
	feed *storage.NotificationFeed,
) *App {
	return &App{
		Cfg:         cfg,
		Logger:      logger,
		Store:       store,
		Coordinator: coordinator,
		server:      srv,
		relay:       relay,
		feed:        feed,
	}
}

// Start launches the queue relay and then the HTTP server. It blocks until
// the server stops.
func (a *App) Start() error {
	a.Logger.Info("starting FareScout",
		"server_port", a.Cfg.ServerPort,
		"queue", a.Cfg.Queue.Name,
	)

	a.relay.Start()

	if err := a.server.Start(); err != nil {
		a.Logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts the application down cleanly: the HTTP server first so no new
// work arrives, then the relay so in-flight deliveries settle, then the
// change feed.
func (a *App) Stop() error {
	a.Logger.Info("shutting down FareScout services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.Logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	a.relay.Stop()

	if err := a.feed.Close(); err != nil {
		a.Logger.Error("error closing job change feed", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}
	a.Logger.Info("FareScout stopped successfully")
	return nil
}
