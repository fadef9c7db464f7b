// Package repository implements Connection persistence for PostgreSQL and
// MySQL, following the same database.GetTx-threaded, transaction-aware shape
// as the teacher's secret repositories.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
	"github.com/snpvault/enclave-core/internal/vault/domain"
)

// PostgreSQLConnectionRepository implements Connection persistence for PostgreSQL.
type PostgreSQLConnectionRepository struct {
	db *sql.DB
}

// NewPostgreSQLConnectionRepository creates a new PostgreSQL connection repository.
func NewPostgreSQLConnectionRepository(db *sql.DB) *PostgreSQLConnectionRepository {
	return &PostgreSQLConnectionRepository{db: db}
}

func (r *PostgreSQLConnectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
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
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := querier.ExecContext(ctx, query,
		conn.ID, conn.UserUID, conn.Exchange, conn.Label,
		conn.EncryptedAPIKey.Ciphertext, conn.EncryptedAPIKey.IV, conn.EncryptedAPIKey.AuthTag,
		conn.EncryptedAPISecret.Ciphertext, conn.EncryptedAPISecret.IV, conn.EncryptedAPISecret.AuthTag,
		passphraseCt, passphraseIV, passphraseTag,
		conn.CredentialsHash, conn.SyncIntervalMinutes, conn.IsActive, conn.CreatedAt, conn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateConnection
		}
		return apperrors.Wrap(err, "failed to create connection")
	}
	return nil
}

func (r *PostgreSQLConnectionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(ctx, selectConnectionQuery+" WHERE id = $1", id)
	return scanConnection(row)
}

func (r *PostgreSQLConnectionRepository) GetByIdentity(ctx context.Context, userUID, exchange, label string) (*domain.Connection, error) {
	querier := database.GetTx(ctx, r.db)
	row := querier.QueryRowContext(
		ctx,
		selectConnectionQuery+" WHERE user_uid = $1 AND exchange = $2 AND label = $3",
		userUID, exchange, label,
	)
	return scanConnection(row)
}

func (r *PostgreSQLConnectionRepository) ListActiveByUser(ctx context.Context, userUID string) ([]*domain.Connection, error) {
	querier := database.GetTx(ctx, r.db)
	rows, err := querier.QueryContext(
		ctx,
		selectConnectionQuery+" WHERE user_uid = $1 AND is_active = true ORDER BY created_at",
		userUID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list connections")
	}
	defer func() { _ = rows.Close() }()
	return scanConnectionRows(rows)
}

func (r *PostgreSQLConnectionRepository) Update(ctx context.Context, conn *domain.Connection) error {
	querier := database.GetTx(ctx, r.db)

	passphraseCt, passphraseIV, passphraseTag := splitPassphrase(conn.EncryptedPassphrase)

	query := `UPDATE exchange_connections SET
				encrypted_api_key = $1, api_key_iv = $2, api_key_tag = $3,
				encrypted_api_secret = $4, api_secret_iv = $5, api_secret_tag = $6,
				encrypted_passphrase = $7, passphrase_iv = $8, passphrase_tag = $9,
				credentials_hash = $10, updated_at = $11
			  WHERE id = $12`

	_, err := querier.ExecContext(ctx, query,
		conn.EncryptedAPIKey.Ciphertext, conn.EncryptedAPIKey.IV, conn.EncryptedAPIKey.AuthTag,
		conn.EncryptedAPISecret.Ciphertext, conn.EncryptedAPISecret.IV, conn.EncryptedAPISecret.AuthTag,
		passphraseCt, passphraseIV, passphraseTag,
		conn.CredentialsHash, conn.UpdatedAt, conn.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update connection")
	}
	return nil
}

func (r *PostgreSQLConnectionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)
	_, err := querier.ExecContext(ctx,
		`UPDATE exchange_connections SET is_active = false, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate connection")
	}
	return nil
}

func (r *PostgreSQLConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)
	_, err := querier.ExecContext(ctx, `DELETE FROM exchange_connections WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete connection")
	}
	return nil
}

func (r *PostgreSQLConnectionRepository) CountActiveByUser(ctx context.Context, userUID string) (int, error) {
	querier := database.GetTx(ctx, r.db)
	var count int
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange_connections WHERE user_uid = $1 AND is_active = true`,
		userUID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count active connections")
	}
	return count, nil
}

func (r *PostgreSQLConnectionRepository) CountActiveTotal(ctx context.Context) (int, error) {
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

func (r *PostgreSQLConnectionRepository) ListActiveUserUIDs(ctx context.Context) ([]string, error) {
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ok := pqErrAs(err, &pqErr); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func pqErrAs(err error, target **pq.Error) bool {
	for err != nil {
		if pqe, ok := err.(*pq.Error); ok {
			*target = pqe
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
