// Package cli holds the bootstrap shared by cmd/bilancio and
// cmd/bilancio-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// Bootstrap loads the optional .env file, sets up the component logger as
// the process default and returns the validated configuration. Exits the
// process when the configuration is unusable.
func Bootstrap(component string) (*log.Logger, *config.Config) {
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     levelFromEnv(),
		Component: component,
	})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return logger, cfg
}

// OpenStorage opens the SQLite repository and runs migrations. Exits the
// process on failure; neither binary can do anything without storage.
func OpenStorage(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
