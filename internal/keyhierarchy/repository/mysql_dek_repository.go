package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/database"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
)

// MySQLDekRepository persists DEK records in MySQL's data_encryption_keys table.
type MySQLDekRepository struct {
	db *sql.DB
}

// NewMySQLDekRepository creates a new MySQL DEK repository instance.
func NewMySQLDekRepository(db *sql.DB) *MySQLDekRepository {
	return &MySQLDekRepository{db: db}
}

func (r *MySQLDekRepository) Create(ctx context.Context, dek *domain.Dek) error {
	querier := database.GetTx(ctx, r.db)

	if dek.ID == "" {
		dek.ID = uuid.Must(uuid.NewV7()).String()
	}
	if dek.CreatedAt.IsZero() {
		dek.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO data_encryption_keys
				(id, wrapped_dek, iv, auth_tag, key_version, master_key_id, is_active, rotated_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx, query,
		dek.ID, dek.WrappedKey, dek.IV, dek.AuthTag, dek.KeyVersion,
		dek.MasterKeyID, dek.IsActive, dek.RotatedAt, dek.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create data encryption key")
	}
	return nil
}

func (r *MySQLDekRepository) GetActive(ctx context.Context) (*domain.Dek, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, wrapped_dek, iv, auth_tag, key_version, master_key_id, is_active, rotated_at, created_at
			  FROM data_encryption_keys
			  WHERE is_active = true
			  ORDER BY created_at DESC
			  LIMIT 1`

	var dek domain.Dek
	row := querier.QueryRowContext(ctx, query)
	err := row.Scan(
		&dek.ID, &dek.WrappedKey, &dek.IV, &dek.AuthTag, &dek.KeyVersion,
		&dek.MasterKeyID, &dek.IsActive, &dek.RotatedAt, &dek.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoActiveDEK
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get active data encryption key")
	}
	return &dek, nil
}

func (r *MySQLDekRepository) DeactivateAll(ctx context.Context) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE data_encryption_keys SET is_active = false, rotated_at = ? WHERE is_active = true`
	_, err := querier.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate data encryption keys")
	}
	return nil
}
