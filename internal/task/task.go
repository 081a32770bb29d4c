package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a job
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ErrUnknownJobType is recorded on jobs that have no registered handler.
var ErrUnknownJobType = errors.New("unknown job type")

// Job is a unit of background work persisted by a JobStore. A job becomes
// due once RunAt has passed and is attempted at most MaxAttempts times.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Backoff     bool            `json:"backoff"`
	RunAt       time.Time       `json:"run_at"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CanRetry reports whether the job has attempts left.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// JobStore defines the interface for persisting jobs
type JobStore interface {
	// Save inserts a new job.
	Save(ctx context.Context, job *Job) error

	// GetByID retrieves a job by ID.
	// Returns store.ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// ClaimDue atomically moves up to limit pending jobs whose RunAt is not
	// after now into the processing state, incrementing their attempt count,
	// and returns them ordered by RunAt. A job is claimed by one caller only.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// MarkCompleted marks a job as completed.
	MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error

	// MarkFailed marks a job as permanently failed with the given error message.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) error

	// Reschedule returns a job to the pending state to run again at runAt.
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, errMsg string, now time.Time) error

	// ResetStuck returns jobs that have been processing since before
	// olderThan to the pending state and reports how many were reset.
	ResetStuck(ctx context.Context, olderThan time.Time, now time.Time) (int64, error)
}

// Handler executes jobs of one type.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) error

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: the runner fails the job immediately
// instead of rescheduling it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
