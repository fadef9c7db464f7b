package domain

import (
	"github.com/snpvault/enclave-core/internal/errors"
)

// Attestation acquisition and verification error kinds, each distinct at the
// type level per the error-handling design: the bootstrap decides abort vs.
// continue based on which of these it receives, never on a string match.
var (
	// ErrAttestationUnavailable indicates no acquisition source produced a
	// report at all: no guest device, no instance-metadata endpoint, or both failed.
	ErrAttestationUnavailable = errors.Wrap(errors.ErrUnavailable, "attestation unavailable")

	// ErrAttestationUnverified indicates a report was obtained but its VCEK
	// certificate chain did not validate.
	ErrAttestationUnverified = errors.Wrap(errors.ErrUnavailable, "attestation unverified")

	// ErrGuestToolMissing indicates the local privileged attestation interface
	// (guest device and vendor tool) is not present on this host.
	ErrGuestToolMissing = errors.Wrap(errors.ErrUnavailable, "attestation guest tool missing")

	// ErrVCEKFetchFailed indicates the platform VCEK certificate or its CA
	// chain could not be retrieved from the vendor's key distribution service.
	ErrVCEKFetchFailed = errors.Wrap(errors.ErrUnavailable, "VCEK fetch failed")
)
