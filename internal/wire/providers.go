package wire

import (
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/db"
	"github.com/skappel/farescout/internal/logger"
	"github.com/skappel/farescout/internal/storage"
)

func provideSlogLogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(logger.Config{
		Level:  cfg.LogLevel.String(),
		Format: cfg.LogFormat,
	}, os.Stdout)
}

func provideSqlxDB(dbConn *db.DB) *sqlx.DB {
	return dbConn.DB
}

func provideNotificationFeed(dbConn *db.DB, store core.JobStore, log *slog.Logger) (*storage.NotificationFeed, error) {
	return storage.NewNotificationFeed(dbConn.ConnString(), store, log)
}

func provideChangeFeed(feed *storage.NotificationFeed) core.ChangeFeed {
	return feed
}

func provideRedisClient(cfg *config.QueueConfig) (*redis.Client, func()) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return client, func() {
		_ = client.Close()
	}
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideQueueConfig(cfg *config.Config) *config.QueueConfig {
	return &cfg.Queue
}

func provideVendorConfig(cfg *config.Config) *config.VendorConfig {
	return &cfg.Vendor
}
