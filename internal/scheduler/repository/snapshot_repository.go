// Package repository persists snapshot and sync-status records for
// PostgreSQL and MySQL.
package repository

import (
	"context"

	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// SnapshotRepository persists Snapshot records.
type SnapshotRepository interface {
	// CreateBatch inserts every snapshot in one statement set. Callers run
	// this inside a database.TxManager.WithTx call so the batch is atomic
	// per the per-user all-or-nothing rule.
	CreateBatch(ctx context.Context, snapshots []*domain.Snapshot) error
}
