package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// MySQLSnapshotRepository persists Snapshot records in MySQL's
// snapshot_data table.
type MySQLSnapshotRepository struct {
	db *sql.DB
}

// NewMySQLSnapshotRepository creates a new MySQL snapshot repository instance.
func NewMySQLSnapshotRepository(db *sql.DB) *MySQLSnapshotRepository {
	return &MySQLSnapshotRepository{db: db}
}

func (r *MySQLSnapshotRepository) CreateBatch(ctx context.Context, snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, r.db)

	var sb strings.Builder
	sb.WriteString(`INSERT INTO snapshot_data
		(id, user_uid, exchange, label, timestamp, total_equity, realized_balance,
		 unrealized_pnl, deposits, withdrawals, breakdown_by_market, created_at)
		VALUES `)

	placeholder := "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := make([]any, 0, len(snapshots)*12)
	for i, snap := range snapshots {
		if snap.ID == uuid.Nil {
			snap.ID = uuid.Must(uuid.NewV7())
		}

		var breakdown any
		if snap.BreakdownByMarket != nil {
			b, err := json.Marshal(snap.BreakdownByMarket)
			if err != nil {
				return apperrors.Wrap(err, "failed to marshal breakdown_by_market")
			}
			breakdown = b
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholder)

		args = append(args,
			snap.ID.String(), snap.UserUID, snap.Exchange, snap.Label, snap.Timestamp,
			snap.TotalEquity, snap.RealizedBalance, snap.UnrealizedPnL,
			snap.Deposits, snap.Withdrawals, breakdown, snap.CreatedAt,
		)
	}

	if _, err := querier.ExecContext(ctx, sb.String(), args...); err != nil {
		return apperrors.Wrap(err, "failed to create snapshot batch")
	}
	return nil
}
