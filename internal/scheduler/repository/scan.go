package repository

import (
	"database/sql"

	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncStatus(row rowScanner) (*domain.SyncStatus, error) {
	var status domain.SyncStatus
	err := row.Scan(
		&status.ID, &status.State, &status.StartedAt, &status.FinishedAt, &status.DurationMS,
		&status.SnapshotsSaved, &status.UsersAborted, &status.NextScheduledAt,
		&status.TriggeredManually, &status.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSyncStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func scanSyncStatusRows(rows *sql.Rows) (*domain.SyncStatus, error) {
	return scanSyncStatus(rows)
}
