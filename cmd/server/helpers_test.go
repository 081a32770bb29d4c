package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/pillbox-api/internal/config"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a valid configuration backed by an in-memory SQLite database.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:                   0,
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 1,
		},
		Database: config.DatabaseConfig{
			Driver:       driverSQLite,
			URL:          ":memory:",
			MaxOpenConns: 1,
		},
		Auth: config.AuthConfig{
			JWTSecret:            strings.Repeat("k", 32),
			TokenLifetimeMinutes: 60,
		},
		Task: config.TaskConfig{
			WorkerCount:                  1,
			BatchSize:                    5,
			PollIntervalMs:               50,
			StuckJobAgeMinutes:           30,
			StuckJobCheckIntervalMinutes: 5,
			BackoffBaseSeconds:           1,
			BackoffMaxSeconds:            10,
		},
		Notify: config.NotifyConfig{
			Methods:       []string{"email", "sms", "push"},
			RatePerSecond: 100,
			Burst:         10,
		},
	}
}

// newTestDB opens and migrates a fresh in-memory database.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	log := discardLogger()

	db, err := openDatabase(ctx, testConfig().Database, log)
	require.NoError(t, err)
	require.NoError(t, runMigrations(ctx, db, driverSQLite, "up", log))
	return db
}
