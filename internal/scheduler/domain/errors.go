package domain

import "github.com/snpvault/enclave-core/internal/errors"

// ErrAlreadyRunning indicates a tick (scheduled or manual) was rejected
// because a previous run is still in flight. Concurrency is rejected, not
// queued: only one run may be in flight at a time.
var ErrAlreadyRunning = errors.Wrap(errors.ErrConflict, "snapshot run already in progress")

// ErrConnector aggregates any failure from an external connector call:
// timeout, transport error, or a malformed/nil response. It drives the
// per-user atomic abort but never stops the scheduler tick itself.
var ErrConnector = errors.Wrap(errors.ErrUnavailable, "connector call failed")

// ErrSyncStatusNotFound indicates no sync_status row matches the requested id.
var ErrSyncStatusNotFound = errors.Wrap(errors.ErrNotFound, "sync status not found")
