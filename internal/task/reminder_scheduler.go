package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
)

// JobTypePillReminder is the job type of a scheduled pill reminder.
const JobTypePillReminder = "pill_reminder"

// ReminderMaxAttempts is the retry budget of a pill reminder job.
const ReminderMaxAttempts = 5

// ReminderPayload identifies the pill a reminder job is for. The handler
// re-fetches the pill when the job runs, so only identifiers are stored.
type ReminderPayload struct {
	UserID uuid.UUID `json:"user_id"`
	PillID uuid.UUID `json:"pill_id"`
}

// Enqueuer submits jobs. It is implemented by *Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts EnqueueOptions) (*Job, error)
}

// ReminderScheduler turns a persisted pill into exactly one delayed,
// retryable reminder job.
type ReminderScheduler struct {
	queue  Enqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewReminderScheduler creates a ReminderScheduler that submits to queue.
func NewReminderScheduler(queue Enqueuer, logger *slog.Logger) (*ReminderScheduler, error) {
	if queue == nil {
		return nil, errors.New("queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderScheduler{
		queue:  queue,
		logger: logger.With(slog.String("component", "reminder_scheduler")),
		now:    time.Now,
	}, nil
}

// ScheduleReminder enqueues a reminder for pill's current occurrence. When
// the rule has no current date yet, the first occurrence at or after now is
// used. Occurrences in the past fire immediately.
func (s *ReminderScheduler) ScheduleReminder(ctx context.Context, pill *domain.Pill) (*Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if pill == nil {
		return nil, errors.New("pill cannot be nil")
	}

	now := s.now().UTC()
	fireAt := pill.Rule.NextOccurrence(now)
	if pill.Rule.CurrentDate != nil {
		fireAt = *pill.Rule.CurrentDate
	}

	delay := fireAt.Sub(now)
	if delay < 0 {
		delay = 0
	}

	job, err := s.queue.Enqueue(ctx, JobTypePillReminder, ReminderPayload{
		UserID: pill.UserID,
		PillID: pill.ID,
	}, EnqueueOptions{
		Delay:       delay,
		MaxAttempts: ReminderMaxAttempts,
		Backoff:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reminder for pill %s: %w", pill.ID, err)
	}

	log.Info("pill reminder scheduled",
		slog.String("pill_id", pill.ID.String()),
		slog.String("job_id", job.ID.String()),
		slog.Time("fire_at", fireAt),
		slog.String("fires", humanize.RelTime(fireAt, now, "ago", "from now")))

	return job, nil
}
