package usecase

import (
	"context"
	"time"

	"github.com/snpvault/enclave-core/internal/metrics"
	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// schedulerUseCaseWithMetrics decorates Scheduler with business-metrics
// instrumentation, in the same shape as the vault and key hierarchy
// decorators.
type schedulerUseCaseWithMetrics struct {
	next    Scheduler
	metrics metrics.BusinessMetrics
}

// NewSchedulerUseCaseWithMetrics wraps a Scheduler with metrics recording.
func NewSchedulerUseCaseWithMetrics(next Scheduler, m metrics.BusinessMetrics) Scheduler {
	return &schedulerUseCaseWithMetrics{next: next, metrics: m}
}

func (s *schedulerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "scheduler", operation, status)
	s.metrics.RecordDuration(ctx, "scheduler", operation, time.Since(start), status)
}

func (s *schedulerUseCaseWithMetrics) RunTick(ctx context.Context) error {
	start := time.Now()
	err := s.next.RunTick(ctx)
	s.record(ctx, "tick", start, err)
	return err
}

func (s *schedulerUseCaseWithMetrics) TriggerManualSync(ctx context.Context) error {
	start := time.Now()
	err := s.next.TriggerManualSync(ctx)
	s.record(ctx, "manual_trigger", start, err)
	return err
}

func (s *schedulerUseCaseWithMetrics) LatestStatus(ctx context.Context) (*domain.SyncStatus, error) {
	return s.next.LatestStatus(ctx)
}

func (s *schedulerUseCaseWithMetrics) ListStatus(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error) {
	return s.next.ListStatus(ctx, offset, limit)
}

func (s *schedulerUseCaseWithMetrics) NextScheduledAt() time.Time {
	return s.next.NextScheduledAt()
}
