package sqlite

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

// SQLitePillStore implements store.PillStore on SQLite.
type SQLitePillStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLitePillStore creates a SQLitePillStore on db, which may be a
// connection pool or a transaction.
func NewSQLitePillStore(db store.DBTX, logger *slog.Logger) *SQLitePillStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLitePillStore{
		db:     db,
		logger: logger.With(slog.String("component", "pill_store")),
	}
}

var _ store.PillStore = (*SQLitePillStore)(nil)

// WithTx implements store.PillStore.WithTx
func (s *SQLitePillStore) WithTx(tx *sql.Tx) store.PillStore {
	return &SQLitePillStore{db: tx, logger: s.logger}
}

// ListByUser implements store.PillStore.ListByUser
func (s *SQLitePillStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+pillColumns+`
		FROM pills
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID.String())
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
	return pills, nil
}

// GetByID implements store.PillStore.GetByID
func (s *SQLitePillStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pill, error) {
	pill, err := scanPill(s.db.QueryRowContext(ctx,
		`SELECT `+pillColumns+` FROM pills WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPillNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get pill",
			slog.String("pill_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("pill", "get", "failed to get pill", MapError(err))
	}
	return pill, nil
}

// Create implements store.PillStore.Create
func (s *SQLitePillStore) Create(ctx context.Context, pill *domain.Pill) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := pill.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	methods, err := json.Marshal(pill.Methods)
	if err != nil {
		return store.NewStoreError("pill", "create", "failed to encode methods", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pills (`+pillColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pill.ID.String(),
		pill.UserID.String(),
		pill.Title,
		pill.Description,
		pill.Icon,
		string(methods),
		formatTime(pill.Rule.StartDate),
		pill.Rule.StepMillis(),
		nullableTime(pill.Rule.CurrentDate),
		formatTime(pill.CreatedAt),
		formatTime(pill.UpdatedAt),
	)
	if err != nil {
		log.Error("failed to create pill",
			slog.String("pill_id", pill.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("pill", "create", "failed to insert pill", MapError(err))
	}

	log.Info("pill created successfully",
		slog.String("pill_id", pill.ID.String()),
		slog.String("user_id", pill.UserID.String()))
	return nil
}

// Update implements store.PillStore.Update
func (s *SQLitePillStore) Update(ctx context.Context, pill *domain.Pill) error {
	if err := pill.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	methods, err := json.Marshal(pill.Methods)
	if err != nil {
		return store.NewStoreError("pill", "update", "failed to encode methods", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE pills
		SET title = ?, description = ?, icon = ?, methods = ?, updated_at = ?
		WHERE id = ?`,
		pill.Title,
		pill.Description,
		pill.Icon,
		string(methods),
		formatTime(pill.UpdatedAt),
		pill.ID.String(),
	)
	if err != nil {
		return store.NewStoreError("pill", "update", "failed to update pill", MapError(err))
	}
	return checkRowsAffected(result, store.ErrPillNotFound)
}

// Delete implements store.PillStore.Delete
func (s *SQLitePillStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pills WHERE id = ?`, id.String())
	if err != nil {
		return store.NewStoreError("pill", "delete", "failed to delete pill", MapError(err))
	}
	if err := checkRowsAffected(result, store.ErrPillNotFound); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("pill deleted", slog.String("pill_id", id.String()))
	return nil
}

// UpdateCurrentDate implements store.PillStore.UpdateCurrentDate
func (s *SQLitePillStore) UpdateCurrentDate(ctx context.Context, id uuid.UUID, current time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pills SET current_occurrence = ? WHERE id = ?`,
		formatTime(current), id.String())
	if err != nil {
		return store.NewStoreError("pill", "update", "failed to update current date", MapError(err))
	}
	return checkRowsAffected(result, store.ErrPillNotFound)
}

func scanPill(row rowScanner) (*domain.Pill, error) {
	var (
		pill                 domain.Pill
		id, userID           string
		methods              string
		startDate            string
		stepMs               int64
		current              sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(
		&id,
		&userID,
		&pill.Title,
		&pill.Description,
		&pill.Icon,
		&methods,
		&startDate,
		&stepMs,
		&current,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if pill.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid pill id: %w", err)
	}
	if pill.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if err := json.Unmarshal([]byte(methods), &pill.Methods); err != nil {
		return nil, fmt.Errorf("failed to decode methods: %w", err)
	}
	if pill.Rule.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	pill.Rule.Step = time.Duration(stepMs) * time.Millisecond
	if current.Valid {
		t, err := parseTime(current.String)
		if err != nil {
			return nil, err
		}
		pill.Rule.CurrentDate = &t
	}
	if pill.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if pill.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &pill, nil
}
