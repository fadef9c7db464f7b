package domain

import "github.com/snpvault/enclave-core/internal/errors"

var (
	// ErrDuplicateConnection is returned verbatim to the client when a
	// connection already exists for (user_uid, exchange, label).
	ErrDuplicateConnection = errors.Wrap(errors.ErrConflict, "already connected")

	// ErrConnectionNotFound indicates no connection row matches the lookup.
	ErrConnectionNotFound = errors.Wrap(errors.ErrNotFound, "connection not found")

	// ErrDecryptionFailed is the single opaque error returned for any
	// field-decryption failure; it intentionally carries no detail about
	// which field or why, to avoid turning the vault into a decryption
	// oracle.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
