package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/audit/domain"
	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
)

// PostgreSQLAuditLogRepository implements AuditLog persistence for PostgreSQL.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	var metadataJSON []byte
	var err error
	if log.Metadata != nil {
		metadataJSON, err = json.Marshal(log.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	query := `INSERT INTO audit_logs (id, request_id, user_uid, action, resource, metadata, signature, dek_id, is_signed, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(ctx, query,
		log.ID, log.RequestID, log.UserUID, log.Action, log.Resource,
		metadataJSON, log.Signature, log.DekID, log.IsSigned, log.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

func (p *PostgreSQLAuditLogRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, request_id, user_uid, action, resource, metadata, signature, dek_id, is_signed, created_at
			  FROM audit_logs WHERE id = $1`

	var log domain.AuditLog
	var metadataJSON []byte

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&log.ID, &log.RequestID, &log.UserUID, &log.Action, &log.Resource,
		&metadataJSON, &log.Signature, &log.DekID, &log.IsSigned, &log.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrLogNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get audit log")
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
		}
	}
	return &log, nil
}

func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*domain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	var conditions []string
	var args []any
	paramIndex := 1

	if createdAtFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", paramIndex))
		args = append(args, *createdAtFrom)
		paramIndex++
	}
	if createdAtTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", paramIndex))
		args = append(args, *createdAtTo)
		paramIndex++
	}

	query := `SELECT id, request_id, user_uid, action, resource, metadata, signature, dek_id, is_signed, created_at FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		var log domain.AuditLog
		var metadataJSON []byte
		if err := rows.Scan(
			&log.ID, &log.RequestID, &log.UserUID, &log.Action, &log.Resource,
			&metadataJSON, &log.Signature, &log.DekID, &log.IsSigned, &log.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
			}
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return logs, nil
}
