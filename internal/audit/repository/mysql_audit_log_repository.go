package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/audit/domain"
	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
)

// MySQLAuditLogRepository implements AuditLog persistence for MySQL.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

func (m *MySQLAuditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	var metadataJSON []byte
	var err error
	if log.Metadata != nil {
		metadataJSON, err = json.Marshal(log.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	var dekID *string
	if log.DekID != nil {
		s := log.DekID.String()
		dekID = &s
	}

	query := `INSERT INTO audit_logs (id, request_id, user_uid, action, resource, metadata, signature, dek_id, is_signed, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		log.ID.String(), log.RequestID.String(), log.UserUID, log.Action, log.Resource,
		metadataJSON, log.Signature, dekID, log.IsSigned, log.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

func (m *MySQLAuditLogRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, request_id, user_uid, action, resource, metadata, signature, dek_id, is_signed, created_at
			  FROM audit_logs WHERE id = ?`

	log, err := scanAuditLogRow(querier.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, domain.ErrLogNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get audit log")
	}
	return log, nil
}

func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*domain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any

	if createdAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *createdAtFrom)
	}
	if createdAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *createdAtTo)
	}

	query := `SELECT id, request_id, user_uid, action, resource, metadata, signature, dek_id, is_signed, created_at FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return logs, nil
}

type mysqlRowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLogRow(row mysqlRowScanner) (*domain.AuditLog, error) {
	var log domain.AuditLog
	var id, requestID string
	var dekID *string
	var metadataJSON []byte

	if err := row.Scan(&id, &requestID, &log.UserUID, &log.Action, &log.Resource,
		&metadataJSON, &log.Signature, &dekID, &log.IsSigned, &log.CreatedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	log.ID = parsedID

	parsedRequestID, err := uuid.Parse(requestID)
	if err != nil {
		return nil, err
	}
	log.RequestID = parsedRequestID

	if dekID != nil {
		parsed, err := uuid.Parse(*dekID)
		if err != nil {
			return nil, err
		}
		log.DekID = &parsed
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
			return nil, err
		}
	}

	return &log, nil
}
