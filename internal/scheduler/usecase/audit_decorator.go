package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// AuditRecorder is the subset of the audit trail's contract the scheduler
// needs: one signed event per tick outcome. No single user owns a tick, so
// UserUID is always nil.
type AuditRecorder interface {
	Record(ctx context.Context, requestID uuid.UUID, userUID *string, action, resource string, metadata map[string]any) error
}

// schedulerUseCaseWithAudit decorates Scheduler, recording a signed audit
// entry for every tick outcome: started-and-completed, started-and-skipped
// (another tick already in flight), or started-and-failed.
type schedulerUseCaseWithAudit struct {
	next  Scheduler
	audit AuditRecorder
}

// NewSchedulerUseCaseWithAudit wraps a Scheduler so every tick is recorded
// to the audit trail, including overlapping ticks it declines to run.
func NewSchedulerUseCaseWithAudit(next Scheduler, audit AuditRecorder) Scheduler {
	return &schedulerUseCaseWithAudit{next: next, audit: audit}
}

func (s *schedulerUseCaseWithAudit) record(ctx context.Context, action string, err error) {
	metadata := map[string]any{"outcome": "completed"}
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		metadata["outcome"] = "skipped_overlapping"
	case err != nil:
		metadata["outcome"] = "failed"
		metadata["error"] = err.Error()
	}
	_ = s.audit.Record(ctx, uuid.Must(uuid.NewV7()), nil, action, "scheduler", metadata)
}

func (s *schedulerUseCaseWithAudit) RunTick(ctx context.Context) error {
	err := s.next.RunTick(ctx)
	s.record(ctx, "scheduler_tick", err)
	return err
}

func (s *schedulerUseCaseWithAudit) TriggerManualSync(ctx context.Context) error {
	err := s.next.TriggerManualSync(ctx)
	s.record(ctx, "scheduler_manual_trigger", err)
	return err
}

func (s *schedulerUseCaseWithAudit) LatestStatus(ctx context.Context) (*domain.SyncStatus, error) {
	return s.next.LatestStatus(ctx)
}

func (s *schedulerUseCaseWithAudit) ListStatus(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error) {
	return s.next.ListStatus(ctx, offset, limit)
}

func (s *schedulerUseCaseWithAudit) NextScheduledAt() time.Time {
	return s.next.NextScheduledAt()
}
