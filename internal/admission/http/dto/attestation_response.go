package dto

import "time"

// AttestationReportResponse is the report portion of the attestation bundle.
type AttestationReportResponse struct {
	Measurement       string    `json:"measurement"`
	ReportData        string    `json:"report_data"`
	PlatformVersion   string    `json:"platform_version"`
	VCEKChainVerified bool      `json:"vcek_chain_verified"`
	Verified          bool      `json:"verified"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	ProducedAt        time.Time `json:"produced_at"`
}

// AttestationResponse is the single atomic payload a client verifies before
// trusting the channel: the report itself, the TLS fingerprint, the E2E
// public key and its fingerprint, and whether report_data binds both.
type AttestationResponse struct {
	Report            AttestationReportResponse `json:"report"`
	TLSFingerprint    string                     `json:"tls_fingerprint"`
	E2EPublicKeyPEM   string                     `json:"e2e_public_key"`
	E2EFingerprint    string                     `json:"e2e_fingerprint"`
	IdentitiesBound   bool                       `json:"identities_bound"`
}

// TLSFingerprintResponse is the body of GET /api/v1/tls/fingerprint.
type TLSFingerprintResponse struct {
	Fingerprint string `json:"fingerprint"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
