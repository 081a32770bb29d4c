package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/pillbox-api/internal/platform/sqlite"
	"github.com/phrazzld/pillbox-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.ExecContext(ctx, `CREATE TABLE things (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE CHECK (length(name) > 1)
	)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO things (id, name) VALUES (1, 'first')`)
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		wantIs error
	}{
		{name: "unique", query: `INSERT INTO things (id, name) VALUES (2, 'first')`, wantIs: store.ErrDuplicate},
		{name: "primary key", query: `INSERT INTO things (id, name) VALUES (1, 'second')`, wantIs: store.ErrDuplicate},
		{name: "check", query: `INSERT INTO things (id, name) VALUES (3, 'x')`, wantIs: store.ErrInvalidEntity},
		{name: "not null", query: `INSERT INTO things (id, name) VALUES (4, NULL)`, wantIs: store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ExecContext(ctx, tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, sqlite.MapError(err), tt.wantIs)
		})
	}

	t.Run("no rows", func(t *testing.T) {
		assert.ErrorIs(t, sqlite.MapError(fmt.Errorf("scan: %w", sql.ErrNoRows)), store.ErrNotFound)
	})

	t.Run("passthrough", func(t *testing.T) {
		assert.NoError(t, sqlite.MapError(nil))
		orig := errors.New("disk full")
		assert.Same(t, orig, sqlite.MapError(orig))
	})
}
