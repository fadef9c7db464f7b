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

// PostgreSQLSyncStatusRepository persists SyncStatus records in
// PostgreSQL's sync_status table.
type PostgreSQLSyncStatusRepository struct {
	db *sql.DB
}

// NewPostgreSQLSyncStatusRepository creates a new PostgreSQL sync-status repository instance.
func NewPostgreSQLSyncStatusRepository(db *sql.DB) *PostgreSQLSyncStatusRepository {
	return &PostgreSQLSyncStatusRepository{db: db}
}

func (r *PostgreSQLSyncStatusRepository) Create(ctx context.Context, status *domain.SyncStatus) error {
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
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx, query,
		status.ID, status.State, status.StartedAt, status.FinishedAt, status.DurationMS,
		status.SnapshotsSaved, status.UsersAborted, status.NextScheduledAt,
		status.TriggeredManually, status.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync status")
	}
	return nil
}

func (r *PostgreSQLSyncStatusRepository) Update(ctx context.Context, status *domain.SyncStatus) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sync_status SET
				state = $1, finished_at = $2, duration_ms = $3, snapshots_saved = $4,
				users_aborted = $5, next_scheduled_at = $6
			  WHERE id = $7`

	res, err := querier.ExecContext(
		ctx, query,
		status.State, status.FinishedAt, status.DurationMS, status.SnapshotsSaved,
		status.UsersAborted, status.NextScheduledAt, status.ID,
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

func (r *PostgreSQLSyncStatusRepository) GetLatest(ctx context.Context) (*domain.SyncStatus, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at
			  FROM sync_status
			  ORDER BY started_at DESC
			  LIMIT 1`

	row := querier.QueryRowContext(ctx, query)
	status, err := scanSyncStatus(row)
	if err != nil && err != domain.ErrSyncStatusNotFound {
		return nil, apperrors.Wrap(err, "failed to get latest sync status")
	}
	return status, err
}

func (r *PostgreSQLSyncStatusRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at
			  FROM sync_status
			  WHERE id = $1`

	row := querier.QueryRowContext(ctx, query, id)
	status, err := scanSyncStatus(row)
	if err != nil && err != domain.ErrSyncStatusNotFound {
		return nil, apperrors.Wrap(err, "failed to get sync status")
	}
	return status, err
}

func (r *PostgreSQLSyncStatusRepository) List(ctx context.Context, offset, limit int) ([]*domain.SyncStatus, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, state, started_at, finished_at, duration_ms, snapshots_saved,
				 users_aborted, next_scheduled_at, triggered_manually, created_at
			  FROM sync_status
			  ORDER BY started_at DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sync status")
	}
	defer rows.Close()

	var result []*domain.SyncStatus
	for rows.Next() {
		status, err := scanSyncStatusRows(rows)
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
