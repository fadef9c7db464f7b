// Package usecase orchestrates master-key derivation, DEK persistence, and
// the process-wide DEK cache behind a single-writer/multi-reader lease, per
// the shared-resource policy in the concurrency model.
package usecase

import (
	"context"

	"github.com/google/uuid"
)

// MeasurementSource supplies the attestation measurement and platform
// version the master key is derived from. Trust Bootstrap (F) is the only
// real implementation: it holds the verified attestation report obtained at
// startup and hands its fields down through this narrow interface so the key
// hierarchy never has to know how attestation was acquired.
type MeasurementSource interface {
	Measurement(ctx context.Context) (measurement []byte, platformVersion string, err error)
}

// KeyHierarchy is the contract in 4.D: derive, wrap, unwrap, rotate, and
// migrate the data-encryption key.
type KeyHierarchy interface {
	// GetCurrentDEK returns the unwrapped active DEK, initializing on first call
	// if none exists yet. Returns domain.ErrMasterKeyMismatch if migration is required.
	GetCurrentDEK(ctx context.Context) ([]byte, error)

	// CurrentDEKID returns the active DEK's row id, populating the cache via
	// GetCurrentDEK if it isn't already warm. Callers that need to attribute
	// something to "the DEK that was active" (the audit signer) use this
	// instead of re-deriving it themselves.
	CurrentDEKID(ctx context.Context) (uuid.UUID, error)

	// RotateDEK generates a new DEK, wraps it under the current master key, and
	// atomically deactivates previous active records.
	RotateDEK(ctx context.Context) ([]byte, error)

	// MigrateToNewMaster unwraps the active DEK with an operator-supplied old
	// master key, re-wraps it under the currently derived master, and
	// atomically swaps active records. No migration happens silently.
	MigrateToNewMaster(ctx context.Context, oldMasterKey []byte) ([]byte, error)

	// NeedsInitialization reports whether no active DEK exists yet.
	NeedsInitialization(ctx context.Context) (bool, error)

	// NeedsMigration reports whether the active DEK was wrapped under a
	// master key different from the one currently derivable.
	NeedsMigration(ctx context.Context) (bool, error)

	// ClearCache wipes the memoized plaintext DEK and drops the reference.
	ClearCache()
}
