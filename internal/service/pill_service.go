package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/redact"
	"github.com/phrazzld/pillbox-api/internal/store"
	"github.com/phrazzld/pillbox-api/internal/task"
)

// ReminderScheduler enqueues the reminder job for a pill's next occurrence.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, pill *domain.Pill) (*task.Job, error)
}

// PillService provides pill-related operations on behalf of an authenticated user.
// Every operation on an existing pill checks that userID owns it first.
type PillService interface {
	// ListPills returns every pill owned by userID, newest first.
	ListPills(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error)

	// GetPill returns a single pill owned by userID.
	GetPill(ctx context.Context, userID, pillID uuid.UUID) (*domain.Pill, error)

	// CreatePill validates input, saves a new pill and schedules its first
	// reminder. If only the scheduling fails the saved pill is returned
	// together with an error wrapping ErrSchedulingFailed.
	CreatePill(ctx context.Context, userID uuid.UUID, input domain.CreatePillInput) (*domain.Pill, error)

	// UpdatePill applies patch to a pill owned by userID. The rule is never changed.
	UpdatePill(ctx context.Context, userID, pillID uuid.UUID, patch domain.PillPatch) (*domain.Pill, error)

	// DeletePill removes a pill owned by userID.
	DeletePill(ctx context.Context, userID, pillID uuid.UUID) error
}

// pillServiceImpl implements the PillService interface
type pillServiceImpl struct {
	pills     store.PillStore
	scheduler ReminderScheduler
	methods   domain.MethodSet
	logger    *slog.Logger
	now       func() time.Time
}

// NewPillService creates a new PillService
// methods is the set of reminding methods pills may use; a nil set accepts any.
// It returns an error if any of the required dependencies are nil.
func NewPillService(
	pills store.PillStore,
	scheduler ReminderScheduler,
	methods domain.MethodSet,
	logger *slog.Logger,
) (PillService, error) {
	if pills == nil {
		return nil, errors.New("pill store cannot be nil")
	}
	if scheduler == nil {
		return nil, errors.New("reminder scheduler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &pillServiceImpl{
		pills:     pills,
		scheduler: scheduler,
		methods:   methods,
		logger:    logger.With(slog.String("component", "pill_service")),
		now:       time.Now,
	}, nil
}

// ListPills implements PillService.ListPills
func (s *pillServiceImpl) ListPills(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error) {
	pills, err := s.pills.ListByUser(ctx, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list pills",
			slog.String("user_id", userID.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewPillServiceError("list_pills", "failed to retrieve pills", err)
	}
	return pills, nil
}

// GetPill implements PillService.GetPill
func (s *pillServiceImpl) GetPill(ctx context.Context, userID, pillID uuid.UUID) (*domain.Pill, error) {
	return s.authorize(ctx, "get_pill", userID, pillID)
}

// CreatePill implements PillService.CreatePill
func (s *pillServiceImpl) CreatePill(
	ctx context.Context,
	userID uuid.UUID,
	input domain.CreatePillInput,
) (*domain.Pill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	draft, err := domain.NormalizeCreatePill(input, s.methods)
	if err != nil {
		log.Debug("pill input rejected", slog.Any("messages", domain.ValidationMessages(err)))
		return nil, err
	}

	pill, err := domain.NewPill(userID, *draft, s.now())
	if err != nil {
		return nil, NewPillServiceError("create_pill", "failed to build pill", err)
	}

	if err := s.pills.Create(ctx, pill); err != nil {
		log.Error("failed to save pill", slog.String("error", redact.Error(err)))
		return nil, NewPillServiceError("create_pill", "failed to save pill", err)
	}

	job, err := s.scheduler.ScheduleReminder(ctx, pill)
	if err != nil {
		log.Error("pill saved but reminder scheduling failed",
			slog.String("pill_id", pill.ID.String()),
			slog.String("error", redact.Error(err)))
		return pill, fmt.Errorf("%w: %w", ErrSchedulingFailed, err)
	}

	log.Info("pill created",
		slog.String("pill_id", pill.ID.String()),
		slog.String("job_id", job.ID.String()))
	return pill, nil
}

// UpdatePill implements PillService.UpdatePill
// The patch is validated before the pill is looked up, so invalid input is
// reported even for pills the caller cannot see.
func (s *pillServiceImpl) UpdatePill(
	ctx context.Context,
	userID, pillID uuid.UUID,
	patch domain.PillPatch,
) (*domain.Pill, error) {
	if err := patch.Validate(s.methods); err != nil {
		return nil, err
	}

	pill, err := s.authorize(ctx, "update_pill", userID, pillID)
	if err != nil {
		return nil, err
	}

	patch.Apply(pill, s.now())

	if err := s.pills.Update(ctx, pill); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update pill",
			slog.String("pill_id", pillID.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewPillServiceError("update_pill", "failed to save pill", err)
	}
	return pill, nil
}

// DeletePill implements PillService.DeletePill
// Reminder jobs already queued for the pill are left alone; the reminder
// handler ends the chain once it finds the pill gone.
func (s *pillServiceImpl) DeletePill(ctx context.Context, userID, pillID uuid.UUID) error {
	if _, err := s.authorize(ctx, "delete_pill", userID, pillID); err != nil {
		return err
	}

	if err := s.pills.Delete(ctx, pillID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete pill",
			slog.String("pill_id", pillID.String()),
			slog.String("error", redact.Error(err)))
		return NewPillServiceError("delete_pill", "failed to delete pill", err)
	}
	return nil
}

// authorize loads pillID and checks that userID owns it.
func (s *pillServiceImpl) authorize(
	ctx context.Context,
	op string,
	userID, pillID uuid.UUID,
) (*domain.Pill, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	pill, err := s.pills.GetByID(ctx, pillID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to retrieve pill",
				slog.String("pill_id", pillID.String()),
				slog.String("error", redact.Error(err)))
		}
		return nil, NewPillServiceError(op, "failed to retrieve pill", err)
	}

	if !pill.IsOwnedBy(userID) {
		log.Warn("pill access denied",
			slog.String("operation", op),
			slog.String("pill_id", pillID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrNotOwned
	}
	return pill, nil
}
