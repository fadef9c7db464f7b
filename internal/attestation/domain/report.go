// Package domain defines the ephemeral attestation report produced by the
// platform's hardware attestation pipeline. Reports are never persisted.
package domain

import "time"

// ReportDataSize is the fixed width of the caller-supplied binding field.
const ReportDataSize = 64

// MeasurementSize is the width of the platform's enclave-image digest.
const MeasurementSize = 48

// Report is a single hardware attestation report. It is produced on demand
// and carries no lifetime beyond the call that requested it.
type Report struct {
	// Measurement is the platform identity of the launched enclave code.
	Measurement []byte
	// ReportData is the caller-supplied 64-byte binding field, echoed verbatim
	// inside the signed report.
	ReportData []byte
	// PlatformVersion identifies the firmware/TCB version that produced the report.
	PlatformVersion string
	// Signature is the platform's raw signature bytes over the report.
	Signature []byte
	// VCEKChainVerified is true only when the VCEK certificate chain validated
	// cleanly against the vendor's distribution service.
	VCEKChainVerified bool
	// Verified summarizes overall trust in this report: fetched successfully
	// and (when chain verification was attempted) the chain checked out.
	Verified bool
	// FailureReason carries a human-readable cause when Verified is false.
	// It is never a distinguishing crypto-oracle signal; it describes
	// acquisition/verification plumbing failures only.
	FailureReason string
	// ProducedAt is when this report was generated, for staleness checks by callers.
	ProducedAt time.Time
}

// BindsIdentities reports whether ReportData's two 32-byte halves equal the
// given TLS certificate and E2E public key digests, per the data model invariant.
func (r *Report) BindsIdentities(tlsCertSHA256, e2ePubKeySHA256 [32]byte) bool {
	if len(r.ReportData) != ReportDataSize {
		return false
	}
	for i := 0; i < 32; i++ {
		if r.ReportData[i] != tlsCertSHA256[i] {
			return false
		}
	}
	for i := 0; i < 32; i++ {
		if r.ReportData[32+i] != e2ePubKeySHA256[i] {
			return false
		}
	}
	return true
}
