package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// QueueConfig holds the settings for the durable job queue and its signed
// webhook delivery.
type QueueConfig struct {
	RedisAddr      string
	Name           string
	WebhookURL     string
	SigningKey     string // current signing key
	NextSigningKey string // next key during rotation, may be empty
	MaxAttempts    int
	RetryDelay     time.Duration
}

// VendorConfig holds the flight-offers API settings.
type VendorConfig struct {
	APIURL    string
	APIToken  string
	OfferSort string
	OfferCap  int
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort    string
	LogLevel      slog.Level
	LogFormat     string
	Database      DBConfig
	Queue         QueueConfig
	Vendor        VendorConfig
	SearchTimeout time.Duration
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "farescout")
	viper.SetDefault("DB_NAME", "farescout")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("QUEUE_NAME", "farescout:search-jobs")
	viper.SetDefault("QUEUE_WEBHOOK_URL", "http://localhost:8080/api/v1/webhook/queue")
	viper.SetDefault("QUEUE_MAX_ATTEMPTS", 5)
	viper.SetDefault("QUEUE_RETRY_DELAY", "2s")
	viper.SetDefault("DUFFEL_API_URL", "https://api.duffel.com")
	viper.SetDefault("OFFER_SORT", "total_amount")
	viper.SetDefault("OFFER_CAP", 15)
	viper.SetDefault("SEARCH_TIMEOUT", "60s")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}
	viper.AutomaticEnv()

	if viper.GetString("QUEUE_SIGNING_KEY") == "" {
		return nil, fmt.Errorf("QUEUE_SIGNING_KEY must be set")
	}
	if viper.GetString("DUFFEL_API_TOKEN") == "" {
		return nil, fmt.Errorf("DUFFEL_API_TOKEN must be set")
	}
	if offerCap := viper.GetInt("OFFER_CAP"); offerCap < 1 || offerCap > 200 {
		return nil, fmt.Errorf("OFFER_CAP must be between 1 and 200, got %d", offerCap)
	}

	// Parse the log level string into a slog.Level type.
	var logLevel slog.Level
	logLevelStr := strings.ToLower(viper.GetString("LOG_LEVEL"))
	switch logLevelStr {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	case "info":
		logLevel = slog.LevelInfo
	default:
		slog.Warn("unrecognized log level, defaulting to info", "provided", logLevelStr)
		logLevel = slog.LevelInfo
	}

	return &Config{
		ServerPort: viper.GetString("SERVER_PORT"),
		LogLevel:   logLevel,
		LogFormat:  viper.GetString("LOG_FORMAT"),
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Queue: QueueConfig{
			RedisAddr:      viper.GetString("REDIS_ADDR"),
			Name:           viper.GetString("QUEUE_NAME"),
			WebhookURL:     viper.GetString("QUEUE_WEBHOOK_URL"),
			SigningKey:     viper.GetString("QUEUE_SIGNING_KEY"),
			NextSigningKey: viper.GetString("QUEUE_NEXT_SIGNING_KEY"),
			MaxAttempts:    viper.GetInt("QUEUE_MAX_ATTEMPTS"),
			RetryDelay:     viper.GetDuration("QUEUE_RETRY_DELAY"),
		},
		Vendor: VendorConfig{
			APIURL:    viper.GetString("DUFFEL_API_URL"),
			APIToken:  viper.GetString("DUFFEL_API_TOKEN"),
			OfferSort: viper.GetString("OFFER_SORT"),
			OfferCap:  viper.GetInt("OFFER_CAP"),
		},
		SearchTimeout: viper.GetDuration("SEARCH_TIMEOUT"),
	}, nil
}
