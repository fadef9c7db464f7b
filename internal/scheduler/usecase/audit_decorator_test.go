package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/scheduler/connector"
)

type fakeSchedulerAuditRecorder struct {
	actions []string
	outcome []string
}

func (f *fakeSchedulerAuditRecorder) Record(_ context.Context, _ uuid.UUID, _ *string, action, resource string, metadata map[string]any) error {
	f.actions = append(f.actions, action+":"+resource)
	f.outcome = append(f.outcome, metadata["outcome"].(string))
	return nil
}

func TestSchedulerWithAudit_RecordsCompletedTick(t *testing.T) {
	conns := newFakeConnectionSource()
	conns.addConnection("user-1", "binance", "main")

	base := &schedulerUseCase{
		connections: conns,
		snapshots:   &fakeSnapshotRepo{},
		statuses:    newFakeSyncStatusRepo(),
		registry:    connector.NewRegistry(map[string]connector.Connector{"binance": fakeConnector{}}),
		txManager:   fakeTxManager{},
		pacingDelay: 0,
		logger:      testLogger(),
	}
	audit := &fakeSchedulerAuditRecorder{}
	s := NewSchedulerUseCaseWithAudit(base, audit)

	require.NoError(t, s.RunTick(context.Background()))

	require.Len(t, audit.actions, 1)
	assert.Equal(t, "scheduler_tick:scheduler", audit.actions[0])
	assert.Equal(t, "completed", audit.outcome[0])
}

func TestSchedulerWithAudit_RecordsSkippedOverlap(t *testing.T) {
	base := &schedulerUseCase{
		connections: newFakeConnectionSource(),
		snapshots:   &fakeSnapshotRepo{},
		statuses:    newFakeSyncStatusRepo(),
		registry:    connector.NewRegistry(map[string]connector.Connector{}),
		txManager:   fakeTxManager{},
		logger:      testLogger(),
	}
	base.inFlight.Store(true)

	audit := &fakeSchedulerAuditRecorder{}
	s := NewSchedulerUseCaseWithAudit(base, audit)

	err := s.RunTick(context.Background())
	require.Error(t, err)

	require.Len(t, audit.actions, 1)
	assert.Equal(t, "skipped_overlapping", audit.outcome[0])
}
