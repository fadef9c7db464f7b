// Package domain holds the error kinds and the plaintext-submission guard
// for the admission endpoint's credential connect flow.
package domain

import "github.com/snpvault/enclave-core/internal/errors"

var (
	// ErrPlaintextCredentials is returned when a connect request carries
	// api_key/api_secret fields directly on the body instead of an ECIES
	// envelope. The message always points the caller at the attestation
	// endpoint so it can fetch the E2E public key and encrypt correctly.
	ErrPlaintextCredentials = errors.Wrap(errors.ErrInvalidInput,
		"credentials must be submitted as an encrypted envelope; fetch /api/v1/attestation for the current E2E public key")

	// ErrMalformedPayload indicates a decrypted envelope's plaintext did not
	// parse as the expected JSON credential tuple. Distinct from a decryption
	// failure: the envelope opened cleanly, its contents just weren't valid.
	ErrMalformedPayload = errors.Wrap(errors.ErrInvalidInput, "decrypted payload is not a valid credential object")
)
