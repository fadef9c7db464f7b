package bootstrap

import (
	"context"
	"fmt"

	attestationDomain "github.com/snpvault/enclave-core/internal/attestation/domain"
)

// ReportMeasurementSource hands the measurement and platform version off a
// single verified attestation report to the key hierarchy, so master-key
// derivation never has to know how attestation was obtained. It satisfies
// keyhierarchy/usecase.MeasurementSource structurally.
type ReportMeasurementSource struct {
	Report *attestationDomain.Report
}

// Measurement returns the bootstrap report's measurement and platform
// version, or an error if no report was ever obtained.
func (s *ReportMeasurementSource) Measurement(_ context.Context) ([]byte, string, error) {
	if s.Report == nil {
		return nil, "", fmt.Errorf("no attestation report available")
	}
	return s.Report.Measurement, s.Report.PlatformVersion, nil
}
