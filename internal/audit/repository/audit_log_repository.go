// Package repository persists audit log records for PostgreSQL and MySQL.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/audit/domain"
)

// AuditLogRepository persists AuditLog entries.
type AuditLogRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	Get(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error)
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*domain.AuditLog, error)
}
