// Package domain holds the process-lifetime TLS and E2E identities generated
// inside the enclave at boot, and the ECIES envelope decrypted against them.
package domain

import (
	"github.com/snpvault/enclave-core/internal/errors"
)

// ErrDecryptionFailed is the single opaque error returned for any ECIES
// envelope failure: malformed ephemeral key, wrong shared secret, bad IV
// length, or a failed AEAD tag check. Never distinguish between these to a
// caller; doing so turns decryption into an oracle.
var ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

// ErrNotInitialized indicates an identity was queried before GetCredentials
// established it. Bootstrap ordering should make this unreachable in practice.
var ErrNotInitialized = errors.Wrap(errors.ErrInvalidInput, "identity not initialized")
