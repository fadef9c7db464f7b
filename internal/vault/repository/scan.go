package repository

import (
	"database/sql"

	"github.com/snpvault/enclave-core/internal/vault/domain"
)

const selectConnectionQuery = `SELECT id, user_uid, exchange, label,
	encrypted_api_key, api_key_iv, api_key_tag,
	encrypted_api_secret, api_secret_iv, api_secret_tag,
	encrypted_passphrase, passphrase_iv, passphrase_tag,
	credentials_hash, sync_interval_minutes, is_active, created_at, updated_at
	FROM exchange_connections`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	var conn domain.Connection
	var passphraseCt, passphraseIV, passphraseTag []byte

	err := row.Scan(
		&conn.ID, &conn.UserUID, &conn.Exchange, &conn.Label,
		&conn.EncryptedAPIKey.Ciphertext, &conn.EncryptedAPIKey.IV, &conn.EncryptedAPIKey.AuthTag,
		&conn.EncryptedAPISecret.Ciphertext, &conn.EncryptedAPISecret.IV, &conn.EncryptedAPISecret.AuthTag,
		&passphraseCt, &passphraseIV, &passphraseTag,
		&conn.CredentialsHash, &conn.SyncIntervalMinutes, &conn.IsActive, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}

	if passphraseCt != nil {
		conn.EncryptedPassphrase = &domain.EncryptedField{
			Ciphertext: passphraseCt,
			IV:         passphraseIV,
			AuthTag:    passphraseTag,
		}
	}

	return &conn, nil
}

func scanConnectionRows(rows *sql.Rows) ([]*domain.Connection, error) {
	conns := make([]*domain.Connection, 0)
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conns, nil
}

func splitPassphrase(f *domain.EncryptedField) (ciphertext, iv, tag []byte) {
	if f == nil {
		return nil, nil, nil
	}
	return f.Ciphertext, f.IV, f.AuthTag
}
