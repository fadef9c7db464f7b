// Package usecase orchestrates audit log recording: signing each entry
// under the active DEK before persisting it.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/audit/domain"
)

// KeySource supplies the active DEK used to derive the audit signing key,
// and the id of that DEK so signed entries can be attributed to the key
// that signed them.
type KeySource interface {
	GetCurrentDEK(ctx context.Context) ([]byte, error)
	CurrentDEKID(ctx context.Context) (uuid.UUID, error)
}

// UseCase is the audit trail's contract: record and retrieve signed events.
type UseCase interface {
	// Record signs and persists a single audit log entry. metadata may be nil.
	Record(ctx context.Context, requestID uuid.UUID, userUID *string, action, resource string, metadata map[string]any) error

	// List returns audit logs newest-first, optionally bounded by a created_at window.
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*domain.AuditLog, error)

	// Verify recomputes an entry's signature under the active DEK and reports
	// whether it matches the stored one.
	Verify(ctx context.Context, id uuid.UUID) error
}
