package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/store"
	"github.com/phrazzld/pillbox-api/internal/task"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, backoff, run_at,
	last_error, created_at, updated_at`

// SQLiteJobStore implements task.JobStore on SQLite.
type SQLiteJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteJobStore creates a SQLiteJobStore on db.
func NewSQLiteJobStore(db store.DBTX, logger *slog.Logger) *SQLiteJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ task.JobStore = (*SQLiteJobStore)(nil)

// Save implements task.JobStore.Save
func (s *SQLiteJobStore) Save(ctx context.Context, job *task.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(),
		job.Type,
		string(job.Payload),
		string(job.Status),
		job.Attempts,
		job.MaxAttempts,
		job.Backoff,
		formatTime(job.RunAt),
		job.LastError,
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save job",
			slog.String("job_id", job.ID.String()),
			slog.String("job_type", job.Type),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "create", "failed to insert job", MapError(err))
	}
	return nil
}

// GetByID implements task.JobStore.GetByID
func (s *SQLiteJobStore) GetByID(ctx context.Context, id uuid.UUID) (*task.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, store.NewStoreError("job", "get", "failed to get job", MapError(err))
	}
	return job, nil
}

// ClaimDue implements task.JobStore.ClaimDue
// SQLite serializes writers, so the single UPDATE is enough to keep two
// callers from claiming the same job.
func (s *SQLiteJobStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*task.Job, error) {
	ts := formatTime(now)
	rows, err := s.db.QueryContext(ctx, `
		UPDATE jobs
		SET status = 'processing', attempts = attempts + 1, updated_at = ?
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = 'pending' AND run_at <= ?
			ORDER BY run_at
			LIMIT ?
		)
		RETURNING `+jobColumns, ts, ts, limit)
	if err != nil {
		return nil, store.NewStoreError("job", "claim", "failed to claim due jobs", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []*task.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, store.NewStoreError("job", "claim", "failed to scan job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "claim", "failed to iterate jobs", MapError(err))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].RunAt.Before(jobs[j].RunAt) })
	return jobs, nil
}

// MarkCompleted implements task.JobStore.MarkCompleted
func (s *SQLiteJobStore) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.exec(ctx, "complete",
		`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`,
		formatTime(now), id.String())
}

// MarkFailed implements task.JobStore.MarkFailed
func (s *SQLiteJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) error {
	return s.exec(ctx, "fail",
		`UPDATE jobs SET status = 'failed', last_error = ?, updated_at = ? WHERE id = ?`,
		errMsg, formatTime(now), id.String())
}

// Reschedule implements task.JobStore.Reschedule
func (s *SQLiteJobStore) Reschedule(
	ctx context.Context,
	id uuid.UUID,
	runAt time.Time,
	errMsg string,
	now time.Time,
) error {
	return s.exec(ctx, "reschedule",
		`UPDATE jobs SET status = 'pending', run_at = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		formatTime(runAt), errMsg, formatTime(now), id.String())
}

// ResetStuck implements task.JobStore.ResetStuck
func (s *SQLiteJobStore) ResetStuck(ctx context.Context, olderThan time.Time, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending', last_error = 'reset after being stuck in processing state', updated_at = ?
		WHERE status = 'processing' AND updated_at < ?`,
		formatTime(now), formatTime(olderThan))
	if err != nil {
		return 0, store.NewStoreError("job", "reset", "failed to reset stuck jobs", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("job", "reset", "failed to get rows affected", err)
	}
	return n, nil
}

func (s *SQLiteJobStore) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("job update failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", op, "failed to update job", MapError(err))
	}
	return checkRowsAffected(result, store.ErrJobNotFound)
}

func scanJob(row rowScanner) (*task.Job, error) {
	var (
		job                         task.Job
		id, payload, status         string
		runAt, createdAt, updatedAt string
	)
	if err := row.Scan(
		&id,
		&job.Type,
		&payload,
		&status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.Backoff,
		&runAt,
		&job.LastError,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	job.Payload = []byte(payload)
	job.Status = task.JobStatus(status)
	if job.RunAt, err = parseTime(runAt); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}
