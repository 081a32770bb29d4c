package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/store"
)

const pillColumns = `id, user_id, title, description, icon, methods, start_date, step_ms,
	current_occurrence, created_at, updated_at`

// PostgresPillStore implements the store.PillStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPillStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPillStore creates a new PostgreSQL implementation of the PillStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresPillStore(db store.DBTX, logger *slog.Logger) *PostgresPillStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPillStore{
		db:     db,
		logger: logger.With(slog.String("component", "pill_store")),
	}
}

// Ensure PostgresPillStore implements store.PillStore interface
var _ store.PillStore = (*PostgresPillStore)(nil)

// WithTx implements store.PillStore.WithTx
func (s *PostgresPillStore) WithTx(tx *sql.Tx) store.PillStore {
	return &PostgresPillStore{db: tx, logger: s.logger}
}

// ListByUser implements store.PillStore.ListByUser
func (s *PostgresPillStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + pillColumns + `
		FROM pills
		WHERE user_id = $1
		ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query pills",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("pill", "list", "failed to query pills", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	pills := make([]*domain.Pill, 0)
	for rows.Next() {
		pill, err := scanPill(rows)
		if err != nil {
			return nil, store.NewStoreError("pill", "list", "failed to scan pill", err)
		}
		pills = append(pills, pill)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("pill", "list", "failed to iterate pills", MapError(err))
	}

	log.Debug("listed pills",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(pills)))
	return pills, nil
}

// GetByID implements store.PillStore.GetByID
// Returns store.ErrPillNotFound if the pill does not exist.
func (s *PostgresPillStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + pillColumns + ` FROM pills WHERE id = $1`

	pill, err := scanPill(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("pill not found", slog.String("pill_id", id.String()))
			return nil, store.ErrPillNotFound
		}
		log.Error("failed to get pill",
			slog.String("pill_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("pill", "get", "failed to get pill", MapError(err))
	}
	return pill, nil
}

// Create implements store.PillStore.Create
// Returns validation errors from the domain Pill if data is invalid.
func (s *PostgresPillStore) Create(ctx context.Context, pill *domain.Pill) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := pill.Validate(); err != nil {
		log.Warn("pill validation failed during create",
			slog.String("error", err.Error()),
			slog.String("pill_id", pill.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	methods, err := json.Marshal(pill.Methods)
	if err != nil {
		return store.NewStoreError("pill", "create", "failed to encode methods", err)
	}

	query := `
		INSERT INTO pills (` + pillColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		pill.ID,
		pill.UserID,
		pill.Title,
		pill.Description,
		pill.Icon,
		string(methods),
		pill.Rule.StartDate.UTC(),
		pill.Rule.StepMillis(),
		nullTime(pill.Rule.CurrentDate),
		pill.CreatedAt.UTC(),
		pill.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create pill",
			slog.String("pill_id", pill.ID.String()),
			slog.String("user_id", pill.UserID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("pill", "create", "failed to insert pill", MapError(err))
	}

	log.Info("pill created successfully",
		slog.String("pill_id", pill.ID.String()),
		slog.String("user_id", pill.UserID.String()))
	return nil
}

// Update implements store.PillStore.Update
// Only title, description, icon and methods are written.
func (s *PostgresPillStore) Update(ctx context.Context, pill *domain.Pill) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := pill.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	methods, err := json.Marshal(pill.Methods)
	if err != nil {
		return store.NewStoreError("pill", "update", "failed to encode methods", err)
	}

	query := `
		UPDATE pills
		SET title = $1, description = $2, icon = $3, methods = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		pill.Title,
		pill.Description,
		pill.Icon,
		string(methods),
		pill.UpdatedAt.UTC(),
		pill.ID,
	)
	if err != nil {
		log.Error("failed to update pill",
			slog.String("pill_id", pill.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("pill", "update", "failed to update pill", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrPillNotFound); err != nil {
		return err
	}

	log.Debug("pill updated", slog.String("pill_id", pill.ID.String()))
	return nil
}

// Delete implements store.PillStore.Delete
func (s *PostgresPillStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM pills WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete pill",
			slog.String("pill_id", id.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("pill", "delete", "failed to delete pill", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrPillNotFound); err != nil {
		return err
	}

	log.Info("pill deleted", slog.String("pill_id", id.String()))
	return nil
}

// UpdateCurrentDate implements store.PillStore.UpdateCurrentDate
func (s *PostgresPillStore) UpdateCurrentDate(ctx context.Context, id uuid.UUID, current time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pills SET current_occurrence = $1 WHERE id = $2`,
		current.UTC(), id)
	if err != nil {
		return store.NewStoreError("pill", "update", "failed to update current date", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrPillNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPill(row rowScanner) (*domain.Pill, error) {
	var (
		pill    domain.Pill
		methods []byte
		stepMs  int64
		current sql.NullTime
	)

	if err := row.Scan(
		&pill.ID,
		&pill.UserID,
		&pill.Title,
		&pill.Description,
		&pill.Icon,
		&methods,
		&pill.Rule.StartDate,
		&stepMs,
		&current,
		&pill.CreatedAt,
		&pill.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(methods, &pill.Methods); err != nil {
		return nil, fmt.Errorf("failed to decode methods: %w", err)
	}

	pill.Rule.StartDate = pill.Rule.StartDate.UTC()
	pill.Rule.Step = time.Duration(stepMs) * time.Millisecond
	if current.Valid {
		t := current.Time.UTC()
		pill.Rule.CurrentDate = &t
	}
	pill.CreatedAt = pill.CreatedAt.UTC()
	pill.UpdatedAt = pill.UpdatedAt.UTC()

	return &pill, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
