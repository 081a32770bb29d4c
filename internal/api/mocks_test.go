package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
)

// mockPillService is a mock implementation of the PillService interface
type mockPillService struct {
	listFn   func(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error)
	getFn    func(ctx context.Context, userID, pillID uuid.UUID) (*domain.Pill, error)
	createFn func(ctx context.Context, userID uuid.UUID, in domain.CreatePillInput) (*domain.Pill, error)
	updateFn func(ctx context.Context, userID, pillID uuid.UUID, patch domain.PillPatch) (*domain.Pill, error)
	deleteFn func(ctx context.Context, userID, pillID uuid.UUID) error
}

func (m *mockPillService) ListPills(ctx context.Context, userID uuid.UUID) ([]*domain.Pill, error) {
	return m.listFn(ctx, userID)
}

func (m *mockPillService) GetPill(ctx context.Context, userID, pillID uuid.UUID) (*domain.Pill, error) {
	return m.getFn(ctx, userID, pillID)
}

func (m *mockPillService) CreatePill(
	ctx context.Context,
	userID uuid.UUID,
	in domain.CreatePillInput,
) (*domain.Pill, error) {
	return m.createFn(ctx, userID, in)
}

func (m *mockPillService) UpdatePill(
	ctx context.Context,
	userID, pillID uuid.UUID,
	patch domain.PillPatch,
) (*domain.Pill, error) {
	return m.updateFn(ctx, userID, pillID, patch)
}

func (m *mockPillService) DeletePill(ctx context.Context, userID, pillID uuid.UUID) error {
	return m.deleteFn(ctx, userID, pillID)
}
