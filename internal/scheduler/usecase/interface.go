// Package usecase drives the daily snapshot tick: a cron-scheduled,
// non-overlapping, per-user-atomic pass over every active credential
// record.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/scheduler/domain"
	vaultdomain "github.com/snpvault/enclave-core/internal/vault/domain"
)

// vaultConnection and DecryptedCredentials alias vault's domain types so
// this package depends on vault only for connection metadata and scoped
// decrypted access, never for vault's own use-case or repository layers.
type vaultConnection = vaultdomain.Connection

// DecryptedCredentials mirrors vault's decrypted accessor shape so this
// package never imports vault's domain package for anything beyond the
// connection metadata type above.
type DecryptedCredentials = vaultdomain.DecryptedCredentials

// ConnectionSource is the subset of the vault's Vault contract the
// scheduler needs: enumerate active users, list each user's connections,
// and obtain scoped decrypted access to one connection's credentials.
type ConnectionSource interface {
	ListActiveUserUIDs(ctx context.Context) ([]string, error)
	ListByUser(ctx context.Context, userUID string) ([]*vaultConnection, error)
	WithDecrypted(ctx context.Context, id uuid.UUID, fn func(*DecryptedCredentials) error) error
}

// SnapshotRepository is the subset of the repository package's contract
// the scheduler needs.
type SnapshotRepository interface {
	CreateBatch(ctx context.Context, snapshots []*domain.Snapshot) error
}

// SyncStatusRepository is the subset of the repository package's contract
// the scheduler needs.
type SyncStatusRepository interface {
	Create(ctx context.Context, status *domain.SyncStatus) error
	Update(ctx context.Context, status *domain.SyncStatus) error
	GetLatest(ctx context.Context) (*domain.SyncStatus, error)
	List(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error)
}

// TxManager scopes a function to one database transaction; the scheduler
// uses it once per user so a user's batch write is all-or-nothing.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Scheduler is the contract in 4.H.
type Scheduler interface {
	// RunTick executes one scheduled pass: list active users, build and
	// commit each user's snapshots, and record the outcome. Returns
	// domain.ErrAlreadyRunning if a run is already in flight; the caller
	// (the cron dispatcher) logs and skips rather than queuing.
	RunTick(ctx context.Context) error

	// TriggerManualSync runs the same pass outside the cron schedule. It
	// refuses to overlap a running tick and every invocation is logged
	// distinctly from a scheduled tick.
	TriggerManualSync(ctx context.Context) error

	// LatestStatus returns the most recent sync_status row.
	LatestStatus(ctx context.Context) (*domain.SyncStatus, error)

	// ListStatus returns a page of historical sync_status rows.
	ListStatus(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error)

	// NextScheduledAt reports when the next cron-triggered tick will fire.
	NextScheduledAt() time.Time
}
