//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"
	"github.com/skappel/farescout/internal/airports"
	"github.com/skappel/farescout/internal/app"
	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/db"
	"github.com/skappel/farescout/internal/duffel"
	"github.com/skappel/farescout/internal/jobs"
	"github.com/skappel/farescout/internal/queue"
	"github.com/skappel/farescout/internal/search"
	"github.com/skappel/farescout/internal/server"
	"github.com/skappel/farescout/internal/storage"
)

func InitializeApp() (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		server.NewServer,
		config.LoadConfig,
		db.NewDatabase,
		storage.NewJobStore,
		queue.NewPublisher,
		queue.NewRelay,
		duffel.NewClient,
		jobs.NewSearchWorker,
		search.NewCoordinator,
		airports.NewIndex,
		provideSlogLogger,
		provideSqlxDB,
		provideNotificationFeed,
		provideChangeFeed,
		provideRedisClient,
		provideDBConfig,
		provideQueueConfig,
		provideVendorConfig,
	)
	return &app.App{}, nil, nil
}
