// Package domain defines the tamper-evident audit log record: admission
// submissions, scheduler ticks, and key-hierarchy rotations all flow through
// the same signed append log.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records a single security-relevant event for compliance and
// incident investigation.
//
// Cryptographic integrity: every log is signed with HMAC-SHA256 using a key
// derived from the active data-encryption key (not the master key, so DEK
// rotation re-keys the audit signer too). Signature holds the 32-byte HMAC,
// DekID references the DEK used for signing, and IsSigned distinguishes
// signed logs from legacy unsigned ones.
type AuditLog struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	// UserUID is nil for events with no associated end user (scheduler ticks,
	// DEK rotations).
	UserUID   *string
	Action    string
	Resource  string
	Metadata  map[string]any
	Signature []byte
	DekID     *uuid.UUID
	IsSigned  bool
	CreatedAt time.Time
}

// HasValidSignature reports whether the log carries complete signature data.
func (a *AuditLog) HasValidSignature() bool {
	return a.IsSigned && a.DekID != nil && len(a.Signature) == 32
}
