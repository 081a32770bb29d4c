package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pillbox-api/internal/notify"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/redact"
	"github.com/phrazzld/pillbox-api/internal/store"
)

// ReminderDispatcher delivers a reminder and reports the outcome per method.
// It is implemented by *notify.Dispatcher.
type ReminderDispatcher interface {
	Deliver(ctx context.Context, r notify.Reminder) notify.Report
}

// ReminderHandler executes pill reminder jobs: it delivers the due
// occurrence, advances the pill's current date and schedules the next one.
type ReminderHandler struct {
	pills      store.PillStore
	dispatcher ReminderDispatcher
	scheduler  *ReminderScheduler
	logger     *slog.Logger
	now        func() time.Time
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(
	pills store.PillStore,
	dispatcher ReminderDispatcher,
	scheduler *ReminderScheduler,
	logger *slog.Logger,
) (*ReminderHandler, error) {
	if pills == nil {
		return nil, errors.New("pill store cannot be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}
	if scheduler == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderHandler{
		pills:      pills,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		logger:     logger.With(slog.String("component", "reminder_handler")),
		now:        time.Now,
	}, nil
}

var _ Handler = (*ReminderHandler)(nil)

// Handle implements Handler.
//
// A pill that no longer exists, or no longer belongs to the user the job was
// scheduled for, ends the reminder chain without an error. When the pill's
// current occurrence is still in the future (a retry after the date was
// already advanced) nothing is delivered and the occurrence is rescheduled.
//
// Delivery is best-effort per method. The job is retried only when no method
// delivered and at least one failed, so a retry never repeats a delivery.
// Once any method delivers, failed methods are logged and the date advances.
// Methods without a notifier are skipped.
func (h *ReminderHandler) Handle(ctx context.Context, job *Job) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var payload ReminderPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Permanent(fmt.Errorf("invalid reminder payload: %w", err))
	}

	pill, err := h.pills.GetByID(ctx, payload.PillID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Info("pill no longer exists, dropping reminder",
				slog.String("pill_id", payload.PillID.String()))
			return nil
		}
		return fmt.Errorf("failed to load pill: %w", err)
	}

	if !pill.IsOwnedBy(payload.UserID) {
		log.Warn("pill owner changed, dropping reminder",
			slog.String("pill_id", pill.ID.String()),
			slog.String("job_user_id", payload.UserID.String()))
		return nil
	}

	now := h.now().UTC()
	fireAt := pill.Rule.NextOccurrence(now)
	if pill.Rule.CurrentDate != nil {
		fireAt = *pill.Rule.CurrentDate
	}

	if fireAt.After(now) {
		log.Info("reminder not due yet, rescheduling",
			slog.String("pill_id", pill.ID.String()),
			slog.Time("fire_at", fireAt))
		_, err := h.scheduler.ScheduleReminder(ctx, pill)
		return err
	}

	report := h.dispatcher.Deliver(ctx, notify.Reminder{
		UserID:      pill.UserID,
		PillID:      pill.ID,
		Title:       pill.Title,
		Description: pill.Description,
		Icon:        pill.Icon,
		Methods:     pill.Methods,
		FireAt:      fireAt,
	})
	if len(report.Delivered) == 0 && len(report.Failed) > 0 {
		return fmt.Errorf("failed to deliver reminder: %w", report.Err())
	}
	if len(report.Unsupported) > 0 {
		log.Warn("skipped unsupported reminding methods",
			slog.String("pill_id", pill.ID.String()),
			slog.Any("methods", report.Unsupported))
	}
	if len(report.Failed) > 0 {
		log.Warn("reminder partially delivered",
			slog.String("pill_id", pill.ID.String()),
			slog.Any("delivered", report.Delivered),
			slog.String("error", redact.Error(report.Err())))
	}

	next := pill.Rule.OccurrenceAfter(now)
	if !next.After(now) {
		return Permanent(fmt.Errorf("next occurrence %s is not after %s", next, now))
	}
	if err := h.pills.UpdateCurrentDate(ctx, pill.ID, next); err != nil {
		if store.IsNotFoundError(err) {
			log.Info("pill deleted during delivery, ending reminders",
				slog.String("pill_id", pill.ID.String()))
			return nil
		}
		return fmt.Errorf("failed to advance current date: %w", err)
	}
	pill.Rule.CurrentDate = &next

	if _, err := h.scheduler.ScheduleReminder(ctx, pill); err != nil {
		return err
	}

	log.Info("pill reminder delivered",
		slog.String("pill_id", pill.ID.String()),
		slog.Time("next_fire_at", next))
	return nil
}
