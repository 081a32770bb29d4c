package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
)

// EnqueueOptions controls when and how often a job runs.
type EnqueueOptions struct {
	// Delay before the job becomes due. Negative delays are treated as zero.
	Delay time.Duration

	// MaxAttempts is the retry budget. Values below 1 mean a single attempt.
	MaxAttempts int

	// Backoff spaces retries exponentially instead of retrying immediately.
	Backoff bool
}

// Queue submits delayed, retryable jobs to a JobStore.
type Queue struct {
	store  JobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewQueue creates a Queue backed by store.
func NewQueue(store JobStore, logger *slog.Logger) (*Queue, error) {
	if store == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		logger: logger.With(slog.String("component", "job_queue")),
		now:    time.Now,
	}, nil
}

// Enqueue stores a pending job of jobType with payload marshaled as JSON.
func (q *Queue) Enqueue(
	ctx context.Context,
	jobType string,
	payload any,
	opts EnqueueOptions,
) (*Job, error) {
	log := logger.FromContextOrDefault(ctx, q.logger)

	if jobType == "" {
		return nil, errors.New("job type cannot be empty")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}

	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	now := q.now().UTC()
	job := &Job{
		ID:          uuid.New(),
		Type:        jobType,
		Payload:     raw,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		Backoff:     opts.Backoff,
		RunAt:       now.Add(delay).Truncate(time.Millisecond),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := q.store.Save(ctx, job); err != nil {
		log.Error("failed to enqueue job",
			slog.String("job_type", jobType),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	log.Debug("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", jobType),
		slog.Time("run_at", job.RunAt),
		slog.Int("max_attempts", maxAttempts))

	return job, nil
}
