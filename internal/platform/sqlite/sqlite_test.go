package sqlite_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/platform/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDB opens a migrated in-memory database that is closed when the
// test ends.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath, sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	provider, err := sqlite.NewMigrationProvider(db)
	require.NoError(t, err)
	_, err = provider.Up(ctx)
	require.NoError(t, err)
	return db
}

func newTestPill(t *testing.T, userID uuid.UUID, now time.Time) *domain.Pill {
	t.Helper()
	draft, err := domain.NormalizeCreatePill(domain.CreatePillInput{
		Title:        "Aspirin",
		Description:  "after breakfast",
		Methods:      []string{"email", "sms"},
		StartDateUTC: "2024-01-01T08:00:00Z",
		NextDateUTC:  "2024-01-01T20:00:00Z",
	}, nil)
	require.NoError(t, err)
	pill, err := domain.NewPill(userID, *draft, now)
	require.NoError(t, err)
	return pill
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := sqlite.Open(context.Background(), "  ", sqlite.Options{})
	assert.Error(t, err)

	path := t.TempDir() + "/nested/pillbox.db"
	db, err := sqlite.Open(context.Background(), path, sqlite.Options{BusyTimeout: time.Second})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath, sqlite.Options{})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	provider, err := sqlite.NewMigrationProvider(db)
	require.NoError(t, err)

	results, err := provider.Up(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	pending, err := provider.HasPending(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	_, err = provider.Down(ctx)
	require.NoError(t, err)
	version, err = provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}
