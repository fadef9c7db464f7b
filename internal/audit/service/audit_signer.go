// Package service implements HMAC-SHA256 signing and verification for audit
// log entries, keyed by a signing key derived from the active DEK.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/snpvault/enclave-core/internal/audit/domain"
)

// signingKeyInfo is the fixed HKDF context string for audit signing keys,
// versioned for future algorithm changes.
const signingKeyInfo = "audit-log-signing-v1"

// Signer signs and verifies audit log entries.
type Signer interface {
	Sign(dek []byte, log *domain.AuditLog) ([]byte, error)
	Verify(dek []byte, log *domain.AuditLog) error
}

type auditSigner struct{}

// NewAuditSigner creates an HMAC-based audit log signer using HKDF-SHA256
// for key derivation and HMAC-SHA256 for signature generation.
func NewAuditSigner() Signer {
	return &auditSigner{}
}

// deriveSigningKey derives a 32-byte signing key from the active DEK via
// HKDF-SHA256, separating encryption key usage from signing key usage.
func (a *auditSigner) deriveSigningKey(dek []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, dek, nil, []byte(signingKeyInfo))
	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, err
	}
	return signingKey, nil
}

// canonicalizeLog converts an audit log to a canonical byte representation
// for signing: request_id || user_uid || action || resource || metadata || created_at,
// with length-prefixed encoding for variable-length fields to prevent ambiguity.
func (a *auditSigner) canonicalizeLog(log *domain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 1024)

	buf = append(buf, log.RequestID[:]...)

	var userUID string
	if log.UserUID != nil {
		userUID = *log.UserUID
	}
	buf = appendLengthPrefixed(buf, []byte(userUID))
	buf = appendLengthPrefixed(buf, []byte(log.Action))
	buf = appendLengthPrefixed(buf, []byte(log.Resource))

	if log.Metadata != nil {
		metadataBytes, err := json.Marshal(log.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(log.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

func appendLengthPrefixed(buf, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign generates an HMAC-SHA256 signature for the audit log under a key
// derived from dek.
func (a *auditSigner) Sign(dek []byte, log *domain.AuditLog) ([]byte, error) {
	signingKey, err := a.deriveSigningKey(dek)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer zero(signingKey)

	canonical, err := a.canonicalizeLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize log: %w", err)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify reports whether the log's stored signature matches its canonical
// contents under dek.
func (a *auditSigner) Verify(dek []byte, log *domain.AuditLog) error {
	expected, err := a.Sign(dek, log)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}
	if !hmac.Equal(log.Signature, expected) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
