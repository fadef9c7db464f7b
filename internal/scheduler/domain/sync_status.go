package domain

import (
	"time"

	"github.com/google/uuid"
)

// State is the scheduler's per-tick lifecycle state.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// SyncStatus is one row per scheduler tick: the durable record of when a
// run started, how long it took, and what it produced.
type SyncStatus struct {
	ID                uuid.UUID
	State             State
	StartedAt         time.Time
	FinishedAt        *time.Time
	DurationMS        *int64
	SnapshotsSaved    int
	UsersAborted      int
	NextScheduledAt   *time.Time
	TriggeredManually bool
	CreatedAt         time.Time
}
