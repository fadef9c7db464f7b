// Package repository persists data-encryption-key records for PostgreSQL and MySQL.
package repository

import (
	"context"

	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
)

// DekRepository persists the DEK record table. At most one row may have
// IsActive = true at a time; callers enforce that invariant transactionally
// (deactivate, then insert, in the same transaction).
type DekRepository interface {
	// Create inserts a new DEK record.
	Create(ctx context.Context, dek *domain.Dek) error
	// GetActive returns the single active DEK record, or domain.ErrNoActiveDEK.
	GetActive(ctx context.Context) (*domain.Dek, error)
	// DeactivateAll clears IsActive on every row, used immediately before
	// inserting a new active record within the same transaction.
	DeactivateAll(ctx context.Context) error
}
