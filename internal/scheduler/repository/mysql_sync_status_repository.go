package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// MySQLSyncStatusRepository persists SyncStatus records in MySQL's
// sync_status table.
type MySQLSyncStatusRepository struct {
	db *sql.DB
}

// NewMySQLSyncStatusRepository creates a new MySQL sync-status repository instance.
func NewMySQLSyncStatusRepository(db *sql.DB) *MySQLSyncStatusRepository {
	return &MySQLSyncStatusRepository{db: db}
}

func (r *MySQLSyncStatusRepository) Create(ctx context.Context, status *domain.SyncStatus) error {
	querier := database.GetTx(ctx, r.db)

	if status.ID == uuid.Nil {
		status.ID = uuid.Must(uuid.NewV7())
	}
	if status.CreatedAt.IsZero() {
		status.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO sync_status
				(id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx, query,
		status.ID.String(), status.State, status.StartedAt, status.FinishedAt, status.DurationMS,
		status.SnapshotsSaved, status.UsersAborted, status.NextScheduledAt,
		status.TriggeredManually, status.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync status")
	}
	return nil
}

func (r *MySQLSyncStatusRepository) Update(ctx context.Context, status *domain.SyncStatus) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sync_status SET
				state = ?, finished_at = ?, duration_ms = ?, snapshots_saved = ?,
				users_aborted = ?, next_scheduled_at = ?
			  WHERE id = ?`

	res, err := querier.ExecContext(
		ctx, query,
		status.State, status.FinishedAt, status.DurationMS, status.SnapshotsSaved,
		status.UsersAborted, status.NextScheduledAt, status.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update sync status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read rows affected updating sync status")
	}
	if n == 0 {
		return domain.ErrSyncStatusNotFound
	}
	return nil
}

func (r *MySQLSyncStatusRepository) GetLatest(ctx context.Context) (*domain.SyncStatus, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at
			  FROM sync_status
			  ORDER BY started_at DESC
			  LIMIT 1`

	row := querier.QueryRowContext(ctx, query)
	status, err := scanMySQLSyncStatus(row)
	if err != nil && err != domain.ErrSyncStatusNotFound {
		return nil, apperrors.Wrap(err, "failed to get latest sync status")
	}
	return status, err
}

func (r *MySQLSyncStatusRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at
			  FROM sync_status
			  WHERE id = ?`

	row := querier.QueryRowContext(ctx, query, id.String())
	status, err := scanMySQLSyncStatus(row)
	if err != nil && err != domain.ErrSyncStatusNotFound {
		return nil, apperrors.Wrap(err, "failed to get sync status")
	}
	return status, err
}

func (r *MySQLSyncStatusRepository) List(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at
			  FROM sync_status
			  ORDER BY started_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync status")
	}
	defer rows.Close()

	var result []*domain.SyncStatus
	for rows.Next() {
		status, err := scanMySQLSyncStatus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sync status rows")
	}
	return result, nil
}

// scanMySQLSyncStatus scans a sync_status row whose id column is a
// CHAR(36) string rather than the native uuid type Postgres exposes.
func scanMySQLSyncStatus(row rowScanner) (*domain.SyncStatus, error) {
	var status domain.SyncStatus
	var id string
	err := row.Scan(
		&id, &status.State, &status.StartedAt, &status.FinishedAt, &status.DurationMS,
		&status.SnapshotsSaved, &status.UsersAborted, &status.NextScheduledAt,
		&status.TriggeredManually, &status.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSyncStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	status.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse sync status id")
	}
	return &status, nil
}
