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

// PostgreSQLDekRepository persists DEK records in PostgreSQL's
// data_encryption_keys table.
type PostgreSQLDekRepository struct {
	db *sql.DB
}

// NewPostgreSQLDekRepository creates a new PostgreSQL DEK repository instance.
func NewPostgreSQLDekRepository(db *sql.DB) *PostgreSQLDekRepository {
	return &PostgreSQLDekRepository{db: db}
}

func (r *PostgreSQLDekRepository) Create(ctx context.Context, dek *domain.Dek) error {
	querier := database.GetTx(ctx, r.db)

	if dek.ID == "" {
		dek.ID = uuid.Must(uuid.NewV7()).String()
	}
	if dek.CreatedAt.IsZero() {
		dek.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO data_encryption_keys
				(id, wrapped_dek, iv, auth_tag, key_version, master_key_id, is_active, rotated_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

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

func (r *PostgreSQLDekRepository) GetActive(ctx context.Context) (*domain.Dek, error) {
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

func (r *PostgreSQLDekRepository) DeactivateAll(ctx context.Context) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE data_encryption_keys SET is_active = false, rotated_at = $1 WHERE is_active = true`
	_, err := querier.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate data encryption keys")
	}
	return nil
}
