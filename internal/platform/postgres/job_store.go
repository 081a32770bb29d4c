package postgres

import (
	"context"
	"database/sql"
	"errors"
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

// PostgresJobStore implements the task.JobStore interface using PostgreSQL
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ task.JobStore = (*PostgresJobStore)(nil)

// Save implements task.JobStore.Save
func (s *PostgresJobStore) Save(ctx context.Context, job *task.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Type,
		string(job.Payload),
		string(job.Status),
		job.Attempts,
		job.MaxAttempts,
		job.Backoff,
		job.RunAt.UTC(),
		job.LastError,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to save job",
			slog.String("job_id", job.ID.String()),
			slog.String("job_type", job.Type),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", "create", "failed to insert job", MapError(err))
	}
	return nil
}

// GetByID implements task.JobStore.GetByID
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*task.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, store.NewStoreError("job", "get", "failed to get job", MapError(err))
	}
	return job, nil
}

// ClaimDue implements task.JobStore.ClaimDue
// SKIP LOCKED lets several runners claim concurrently without handing the
// same job to two of them.
func (s *PostgresJobStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*task.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', attempts = attempts + 1, updated_at = $1
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = 'pending' AND run_at <= $1
			ORDER BY run_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	rows, err := s.db.QueryContext(ctx, query, now.UTC(), limit)
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
func (s *PostgresJobStore) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.exec(ctx, "complete",
		`UPDATE jobs SET status = 'completed', updated_at = $1 WHERE id = $2`,
		now.UTC(), id)
}

// MarkFailed implements task.JobStore.MarkFailed
func (s *PostgresJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) error {
	return s.exec(ctx, "fail",
		`UPDATE jobs SET status = 'failed', last_error = $1, updated_at = $2 WHERE id = $3`,
		errMsg, now.UTC(), id)
}

// Reschedule implements task.JobStore.Reschedule
func (s *PostgresJobStore) Reschedule(
	ctx context.Context,
	id uuid.UUID,
	runAt time.Time,
	errMsg string,
	now time.Time,
) error {
	return s.exec(ctx, "reschedule",
		`UPDATE jobs SET status = 'pending', run_at = $1, last_error = $2, updated_at = $3 WHERE id = $4`,
		runAt.UTC(), errMsg, now.UTC(), id)
}

// ResetStuck implements task.JobStore.ResetStuck
func (s *PostgresJobStore) ResetStuck(ctx context.Context, olderThan time.Time, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending', last_error = 'reset after being stuck in processing state', updated_at = $1
		WHERE status = 'processing' AND updated_at < $2
	`, now.UTC(), olderThan.UTC())
	if err != nil {
		return 0, store.NewStoreError("job", "reset", "failed to reset stuck jobs", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("job", "reset", "failed to get rows affected", err)
	}
	return n, nil
}

func (s *PostgresJobStore) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("job update failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return store.NewStoreError("job", op, "failed to update job", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

func scanJob(row rowScanner) (*task.Job, error) {
	var (
		job     task.Job
		payload []byte
		status  string
	)
	if err := row.Scan(
		&job.ID,
		&job.Type,
		&payload,
		&status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.Backoff,
		&job.RunAt,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Payload = append([]byte(nil), payload...)
	job.Status = task.JobStatus(status)
	job.RunAt = job.RunAt.UTC()
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}
