package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
	"github.com/snpvault/enclave-core/internal/vault/domain"
)

// MySQLConnectionRepository implements Connection persistence for MySQL.
type MySQLConnectionRepository struct {
	db *sql.DB
}

// NewMySQLConnectionRepository creates a new MySQL connection repository.
func NewMySQLConnectionRepository(db *sql.DB) *MySQLConnectionRepository {
	return &MySQLConnectionRepository{db: db}
}

func (r *MySQLConnectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
	querier := database.GetTx(ctx, r.db)

	if conn.ID == uuid.Nil {
		conn.ID = uuid.Must(uuid.NewV7())
	}

	passphraseCt, passphraseIV, passphraseTag := splitPassphrase(conn.EncryptedPassphrase)

	query := `INSERT INTO exchange_connections
				(id, user_uid, exchange, label, encrypted_api_key, api_key_iv, api_key_tag,
				 encrypted_api_secret, api_secret_iv, api_secret_tag,
				 encrypted_passphrase, passphrase_iv, passphrase_tag,
				 credentials_hash, sync_interval_minutes, is_active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		conn.ID.String(), conn.UserUID, conn.Exchange, conn.Label,
		conn.EncryptedAPIKey.Ciphertext, conn.EncryptedAPIKey.IV, conn.EncryptedAPIKey.AuthTag,
		conn.EncryptedAPISecret.Ciphertext, conn.EncryptedAPISecret.IV, conn.EncryptedAPISecret.AuthTag,
		passphraseCt, passphraseIV, passphraseTag,
		conn.CredentialsHash, conn.SyncIntervalMinutes, conn.IsActive, conn.CreatedAt, conn.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return domain.ErrDuplicateConnection
		}
		return apperrors.Wrap(err, "failed to create connection")
	}
	return nil
}

func (r *MySQLConnectionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, selectConnectionQuery+" WHERE id = ?", id.String())
	return scanConnection(row)
}

func (r *MySQLConnectionRepository) GetByIdentity(ctx context.Context, userUID, exchange, label string) (*domain.Connection, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(
		ctx,
		selectConnectionQuery+" WHERE user_uid = ? AND exchange = ? AND label = ?",
		userUID, exchange, label,
	)
	return scanConnection(row)
}

func (r *MySQLConnectionRepository) ListActiveByUser(ctx context.Context, userUID string) ([]*domain.Connection, error) {
	querier := database.GetTx(ctx, r.db)
	rows, err := querier.QueryContext(
		ctx,
		selectConnectionQuery+" WHERE user_uid = ? AND is_active = true ORDER BY created_at",
		userUID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list connections")
	}
	defer func() { _ = rows.Close() }()
	return scanConnectionRows(rows)
}

func (r *MySQLConnectionRepository) Update(ctx context.Context, conn *domain.Connection) error {
	querier := database.GetTx(ctx, r.db)

	passphraseCt, passphraseIV, passphraseTag := splitPassphrase(conn.EncryptedPassphrase)

	query := `UPDATE exchange_connections SET
				encrypted_api_key = ?, api_key_iv = ?, api_key_tag = ?,
				encrypted_api_secret = ?, api_secret_iv = ?, api_secret_tag = ?,
				encrypted_passphrase = ?, passphrase_iv = ?, passphrase_tag = ?,
				credentials_hash = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query,
		conn.EncryptedAPIKey.Ciphertext, conn.EncryptedAPIKey.IV, conn.EncryptedAPIKey.AuthTag,
		conn.EncryptedAPISecret.Ciphertext, conn.EncryptedAPISecret.IV, conn.EncryptedAPISecret.AuthTag,
		passphraseCt, passphraseIV, passphraseTag,
		conn.CredentialsHash, conn.UpdatedAt, conn.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update connection")
	}
	return nil
}

func (r *MySQLConnectionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)
	_, err := querier.ExecContext(ctx,
		`UPDATE exchange_connections SET is_active = false, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate connection")
	}
	return nil
}

func (r *MySQLConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)
	_, err := querier.ExecContext(ctx, `DELETE FROM exchange_connections WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete connection")
	}
	return nil
}

func (r *MySQLConnectionRepository) CountActiveByUser(ctx context.Context, userUID string) (int, error) {
	querier := database.GetTx(ctx, r.db)
	var count int
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange_connections WHERE user_uid = ? AND is_active = true`,
		userUID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count active connections")
	}
	return count, nil
}

func (r *MySQLConnectionRepository) CountActiveTotal(ctx context.Context) (int, error) {
	querier := database.GetTx(ctx, r.db)
	var count int
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange_connections WHERE is_active = true`,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count active connections")
	}
	return count, nil
}

func (r *MySQLConnectionRepository) ListActiveUserUIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, r.db)
	rows, err := querier.QueryContext(ctx,
		`SELECT DISTINCT user_uid FROM exchange_connections WHERE is_active = true ORDER BY user_uid`,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list active user uids")
	}
	defer rows.Close()

	var userUIDs []string
	for rows.Next() {
		var userUID string
		if err := rows.Scan(&userUID); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan active user uid")
		}
		userUIDs = append(userUIDs, userUID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate active user uid rows")
	}
	return userUIDs, nil
}
