package domain

import (
	"github.com/snpvault/enclave-core/internal/errors"
)

// Key hierarchy error kinds, each distinct at the type level per the error-handling design.
var (
	// ErrMasterKeyMismatch blocks get_current_dek until migrate_to_new_master
	// is invoked: the active DEK's recorded master_key_id differs from the
	// currently derived master's id.
	ErrMasterKeyMismatch = errors.Wrap(errors.ErrConflict, "master key mismatch: migration required")

	// ErrNoActiveDEK indicates needs_initialization: no DEK record has IsActive = true yet.
	ErrNoActiveDEK = errors.Wrap(errors.ErrNotFound, "no active data-encryption key")

	// ErrCryptoFailure aggregates wrap/unwrap failure, covering both a
	// genuinely wrong key and a tampered stored record; never surfaced with
	// more specificity than this to avoid a decryption oracle.
	ErrCryptoFailure = errors.Wrap(errors.ErrInvalidInput, "crypto failure")
)
