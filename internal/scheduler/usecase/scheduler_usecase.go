package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/snpvault/enclave-core/internal/scheduler/connector"
	"github.com/snpvault/enclave-core/internal/scheduler/domain"
	"github.com/snpvault/enclave-core/internal/scheduler/service"
)

// dailyScheduleSpec is hard-wired to run once daily at 00:00 UTC. It is
// never read from configuration: the value proposition here is a fixed
// wall-clock instant every day, not an operator-tunable one.
const dailyScheduleSpec = "0 0 * * *"

// schedulerUseCase implements Scheduler. inFlight guards concurrent ticks
// with release-store/acquire-load semantics (atomic.Bool) rather than a
// mutex: a tick never blocks waiting for another to finish, it simply
// observes whether one is already running and exits immediately if so.
type schedulerUseCase struct {
	connections ConnectionSource
	snapshots   SnapshotRepository
	statuses    SyncStatusRepository
	registry    connector.Registry
	txManager   TxManager
	pacingDelay time.Duration
	logger      *slog.Logger

	inFlight atomic.Bool
	cron     *cron.Cron
}

// NewSchedulerUseCase wires the scheduler's collaborators and starts the
// daily cron dispatcher in the background. Callers should keep the
// returned Scheduler for the lifetime of the process and stop the
// underlying cron via the process's own shutdown sequence; this package
// exposes no explicit Stop because the teacher's own background workers
// run for the life of the process too.
func NewSchedulerUseCase(
	connections ConnectionSource,
	snapshots SnapshotRepository,
	statuses SyncStatusRepository,
	registry connector.Registry,
	txManager TxManager,
	pacingDelay time.Duration,
	logger *slog.Logger,
) Scheduler {
	s := &schedulerUseCase{
		connections: connections,
		snapshots:   snapshots,
		statuses:    statuses,
		registry:    registry,
		txManager:   txManager,
		pacingDelay: pacingDelay,
		logger:      logger,
		cron:        cron.New(cron.WithLocation(time.UTC)),
	}

	_, err := s.cron.AddFunc(dailyScheduleSpec, func() {
		ctx := context.Background()
		if err := s.RunTick(ctx); err != nil && !errors.Is(err, domain.ErrAlreadyRunning) {
			s.logger.Error("scheduled snapshot tick failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		logger.Error("failed to register daily snapshot schedule", slog.String("error", err.Error()))
	}
	s.cron.Start()

	return s
}

func (s *schedulerUseCase) RunTick(ctx context.Context) error {
	return s.runLocked(ctx, false)
}

func (s *schedulerUseCase) TriggerManualSync(ctx context.Context) error {
	return s.runLocked(ctx, true)
}

func (s *schedulerUseCase) runLocked(ctx context.Context, manual bool) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("snapshot tick skipped: already running",
			slog.Bool("triggered_manually", manual),
		)
		return domain.ErrAlreadyRunning
	}
	defer s.inFlight.Store(false)

	start := time.Now().UTC()
	status := &domain.SyncStatus{
		State:             domain.StateRunning,
		StartedAt:         start,
		TriggeredManually: manual,
	}
	if err := s.statuses.Create(ctx, status); err != nil {
		return err
	}

	s.logger.Info("snapshot tick started",
		slog.Bool("triggered_manually", manual),
		slog.String("sync_status_id", status.ID.String()),
	)

	saved, aborted := s.runTick(ctx, start)

	finishedAt := time.Now().UTC()
	durationMS := finishedAt.Sub(start).Milliseconds()
	nextScheduled := s.NextScheduledAt()

	status.State = domain.StateCompleted
	status.FinishedAt = &finishedAt
	status.DurationMS = &durationMS
	status.SnapshotsSaved = saved
	status.UsersAborted = aborted
	status.NextScheduledAt = &nextScheduled

	if err := s.statuses.Update(ctx, status); err != nil {
		s.logger.Error("failed to persist sync status outcome", slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("snapshot tick finished",
		slog.Int("snapshots_saved", saved),
		slog.Int("users_aborted", aborted),
		slog.Int64("duration_ms", durationMS),
	)
	return nil
}

// runTick runs the per-user algorithm in 4.H and returns the total
// snapshots saved and the count of users whose batch was discarded.
func (s *schedulerUseCase) runTick(ctx context.Context, timestamp time.Time) (saved, aborted int) {
	userUIDs, err := s.connections.ListActiveUserUIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list active users for snapshot tick", slog.String("error", err.Error()))
		return 0, 0
	}

	for _, userUID := range userUIDs {
		n, ok := s.runForUser(ctx, userUID, timestamp)
		if !ok {
			aborted++
			continue
		}
		saved += n
	}
	return saved, aborted
}

// runForUser builds one snapshot per active connection for userUID and
// commits them all in a single transaction. Every connection is attempted
// regardless of earlier failures within the same user's batch; a failure on
// any one of them withholds the commit for the whole batch, since a partial
// snapshot write would leave the user's records for this tick inconsistent
// across exchanges. The rule is per-user, never per-run: one user's failure
// never affects another user's batch.
func (s *schedulerUseCase) runForUser(ctx context.Context, userUID string, timestamp time.Time) (int, bool) {
	conns, err := s.connections.ListByUser(ctx, userUID)
	if err != nil {
		s.logger.Error("failed to list connections for user",
			slog.String("user_uid", userUID), slog.String("error", err.Error()))
		return 0, false
	}

	built := make([]*domain.Snapshot, 0, len(conns))
	anyFailed := false

	for i, conn := range conns {
		snap, err := s.buildOne(ctx, conn, timestamp)
		if err != nil {
			s.logger.Warn("connector call failed, batch for user will be withheld",
				slog.String("user_uid", userUID),
				slog.String("exchange", conn.Exchange),
				slog.String("label", conn.Label),
				slog.String("error", err.Error()),
			)
			anyFailed = true
		} else {
			built = append(built, snap)
		}

		if i < len(conns)-1 && s.pacingDelay > 0 {
			time.Sleep(s.pacingDelay)
		}
	}

	if anyFailed {
		return 0, false
	}

	if len(built) == 0 {
		return 0, true
	}

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.snapshots.CreateBatch(txCtx, built)
	})
	if err != nil {
		s.logger.Error("failed to commit snapshot batch for user",
			slog.String("user_uid", userUID), slog.String("error", err.Error()))
		return 0, false
	}

	return len(built), true
}

func (s *schedulerUseCase) buildOne(ctx context.Context, conn *vaultConnection, timestamp time.Time) (*domain.Snapshot, error) {
	exchangeConnector, ok := s.registry.Get(conn.Exchange)
	if !ok {
		return nil, domain.ErrConnector
	}

	var snapshot *domain.Snapshot
	err := s.connections.WithDecrypted(ctx, conn.ID, func(creds *DecryptedCredentials) error {
		built, err := service.BuildSnapshot(ctx, exchangeConnector, connector.Credentials{
			APIKey:     creds.APIKey,
			APISecret:  creds.APISecret,
			Passphrase: creds.Passphrase,
		}, conn.UserUID, conn.Exchange, conn.Label, timestamp)
		if err != nil {
			return err
		}
		snapshot = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *schedulerUseCase) LatestStatus(ctx context.Context) (*domain.SyncStatus, error) {
	return s.statuses.GetLatest(ctx)
}

func (s *schedulerUseCase) ListStatus(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error) {
	return s.statuses.List(ctx, offset, limit)
}

func (s *schedulerUseCase) NextScheduledAt() time.Time {
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next.UTC()
}
