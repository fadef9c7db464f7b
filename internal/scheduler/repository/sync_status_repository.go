package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// SyncStatusRepository persists one row per scheduler tick.
type SyncStatusRepository interface {
	Create(ctx context.Context, status *domain.SyncStatus) error
	Update(ctx context.Context, status *domain.SyncStatus) error
	GetLatest(ctx context.Context) (*domain.SyncStatus, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error)
	List(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error)
}
