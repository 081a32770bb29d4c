package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
)

// PillStore defines the interface for pill data persistence.
type PillStore interface {
	// ListByUser returns every pill owned by userID, newest first.
	// Returns an empty slice if the user has no pills.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error)

	// GetByID retrieves a pill by its unique ID.
	// Returns ErrPillNotFound if the pill does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Pill, error)

	// Create saves a new pill to the store.
	// Returns validation errors from the domain Pill if data is invalid.
	Create(ctx context.Context, pill *domain.Pill) error

	// Update saves the mutable fields of an existing pill: title,
	// description, icon and methods. The rule and owner are never written.
	// Returns ErrPillNotFound if the pill does not exist.
	Update(ctx context.Context, pill *domain.Pill) error

	// Delete removes a pill by ID.
	// Returns ErrPillNotFound if the pill does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateCurrentDate records the next occurrence to fire for a pill.
	// Returns ErrPillNotFound if the pill does not exist.
	UpdateCurrentDate(ctx context.Context, id uuid.UUID, current time.Time) error

	// WithTx returns a new PillStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PillStore
}
