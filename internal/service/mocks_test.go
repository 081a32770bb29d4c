package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/store"
	"github.com/phrazzld/pillbox-api/internal/task"
	"github.com/stretchr/testify/mock"
)

// MockPillStore mocks the store.PillStore interface
type MockPillStore struct {
	mock.Mock
}

func (m *MockPillStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error) {
	args := m.Called(ctx, userID)
	pills, _ := args.Get(0).([]*domain.Pill)
	return pills, args.Error(1)
}

func (m *MockPillStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pill, error) {
	args := m.Called(ctx, id)
	pill, _ := args.Get(0).(*domain.Pill)
	return pill, args.Error(1)
}

func (m *MockPillStore) Create(ctx context.Context, pill *domain.Pill) error {
	args := m.Called(ctx, pill)
	return args.Error(0)
}

func (m *MockPillStore) Update(ctx context.Context, pill *domain.Pill) error {
	args := m.Called(ctx, pill)
	return args.Error(0)
}

func (m *MockPillStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPillStore) UpdateCurrentDate(ctx context.Context, id uuid.UUID, current time.Time) error {
	args := m.Called(ctx, id, current)
	return args.Error(0)
}

func (m *MockPillStore) WithTx(tx *sql.Tx) store.PillStore {
	return m
}

// MockReminderScheduler mocks the ReminderScheduler interface
type MockReminderScheduler struct {
	mock.Mock
}

func (m *MockReminderScheduler) ScheduleReminder(ctx context.Context, pill *domain.Pill) (*task.Job, error) {
	args := m.Called(ctx, pill)
	job, _ := args.Get(0).(*task.Job)
	return job, args.Error(1)
}
