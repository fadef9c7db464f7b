package domain

import "github.com/snpvault/enclave-core/internal/errors"

// ErrSignatureInvalid indicates a stored audit log's HMAC does not match its
// canonicalized contents: either the row was tampered with or signed under a
// DEK other than the one supplied to Verify.
var ErrSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit log signature invalid")

// ErrLogNotFound indicates no audit log exists with the given id.
var ErrLogNotFound = errors.Wrap(errors.ErrNotFound, "audit log not found")
