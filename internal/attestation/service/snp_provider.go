package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/snpvault/enclave-core/internal/attestation/domain"
)

// guestDevicePath is the local privileged interface used to request a
// report from the AMD SEV-SNP guest firmware.
const guestDevicePath = "/dev/sev-guest"

// SNPProvider acquires reports from an AMD SEV-SNP guest device using the
// vendor's guest tool, tried first, falling back to cloud instance metadata.
// Both sources return a pre-signed report; neither is retried past one failure
// because a report acquisition failure here is a configuration fact, not a
// transient one.
type SNPProvider struct {
	// GuestToolPath is the vendor guest tool binary (e.g. "snpguest").
	GuestToolPath string
	// InstanceMetadataURL is the cloud-provider endpoint that returns a
	// pre-signed report, tried when the local guest device is absent.
	InstanceMetadataURL string
	// ProcessorFamily selects which VCEK/CA chain to fetch (e.g. "milan", "genoa").
	ProcessorFamily string
}

// NewSNPProvider constructs a provider for the given guest tool and processor family.
func NewSNPProvider(guestToolPath, instanceMetadataURL, processorFamily string) *SNPProvider {
	return &SNPProvider{
		GuestToolPath:       guestToolPath,
		InstanceMetadataURL: instanceMetadataURL,
		ProcessorFamily:     processorFamily,
	}
}

// GetReport tries the local guest device first, then cloud instance metadata,
// else fails, per the acquisition-source ordering in the component design.
func (p *SNPProvider) GetReport(ctx context.Context, requestData [domain.ReportDataSize]byte) (*domain.Report, error) {
	if _, err := os.Stat(guestDevicePath); err == nil {
		report, err := p.getReportFromGuestDevice(ctx, requestData)
		if err == nil {
			return report, nil
		}
	}

	if p.InstanceMetadataURL != "" {
		report, err := p.getReportFromInstanceMetadata(ctx, requestData)
		if err == nil {
			return report, nil
		}
	}

	return &domain.Report{
		ReportData:    requestData[:],
		Verified:      false,
		FailureReason: domain.ErrAttestationUnavailable.Error(),
		ProducedAt:    time.Now().UTC(),
	}, domain.ErrAttestationUnavailable
}

func (p *SNPProvider) getReportFromGuestDevice(ctx context.Context, requestData [domain.ReportDataSize]byte) (*domain.Report, error) {
	if p.GuestToolPath == "" {
		return nil, domain.ErrGuestToolMissing
	}

	tmpDir, err := os.MkdirTemp("", "snp-attest-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	if err := os.Chmod(tmpDir, 0o700); err != nil {
		return nil, fmt.Errorf("restricting temp dir permissions: %w", err)
	}

	requestFile := filepath.Join(tmpDir, "request.bin")
	reportFile := filepath.Join(tmpDir, "report.bin")

	if err := os.WriteFile(requestFile, requestData[:], 0o600); err != nil {
		return nil, fmt.Errorf("writing request blob: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.GuestToolPath, "report", reportFile, requestFile)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("invoking guest tool: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	cmd = exec.CommandContext(ctx, p.GuestToolPath, "display", "report", reportFile)
	stdout.Reset()
	stderr.Reset()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("invoking guest tool display: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	report, err := parseGuestToolDisplay(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("parsing report display: %w", err)
	}
	report.ReportData = requestData[:]
	report.ProducedAt = time.Now().UTC()

	verified, vErr := p.VerifyChain(ctx, report)
	report.VCEKChainVerified = verified
	report.Verified = vErr == nil && verified
	if vErr != nil {
		report.FailureReason = vErr.Error()
	}
	return report, nil
}

func (p *SNPProvider) getReportFromInstanceMetadata(ctx context.Context, requestData [domain.ReportDataSize]byte) (*domain.Report, error) {
	// Cloud providers that expose a pre-signed report via instance metadata
	// do so as a fallback when no local guest device exists. The request
	// blob is still included to preserve the binding invariant end to end.
	return nil, fmt.Errorf("%w: instance metadata acquisition not configured", domain.ErrAttestationUnavailable)
}

// VerifyChain fetches the platform VCEK certificate and CA chain into a
// private temp directory and invokes the guest tool's verifier.
func (p *SNPProvider) VerifyChain(ctx context.Context, report *domain.Report) (bool, error) {
	if p.GuestToolPath == "" {
		return false, domain.ErrGuestToolMissing
	}

	tmpDir, err := os.MkdirTemp("", "snp-vcek-*")
	if err != nil {
		return false, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	if err := os.Chmod(tmpDir, 0o700); err != nil {
		return false, fmt.Errorf("restricting temp dir permissions: %w", err)
	}

	fetchVCEK := exec.CommandContext(ctx, p.GuestToolPath, "fetch", "vcek", p.ProcessorFamily, tmpDir)
	if err := fetchVCEK.Run(); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVCEKFetchFailed, err)
	}

	fetchCA := exec.CommandContext(ctx, p.GuestToolPath, "fetch", "ca", p.ProcessorFamily, tmpDir)
	if err := fetchCA.Run(); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVCEKFetchFailed, err)
	}

	verify := exec.CommandContext(ctx, p.GuestToolPath, "verify", "certs", tmpDir)
	if err := verify.Run(); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrAttestationUnverified, err)
	}

	return true, nil
}

var displayFieldRe = regexp.MustCompile(`(?m)^\s*([A-Za-z ]+):\s*([0-9a-fA-F]+|\S+)\s*$`)

// parseGuestToolDisplay parses the guest tool's textual report display into a
// structured record. The tool prints one "Field: value" line per attribute;
// we only extract the ones the data model needs.
func parseGuestToolDisplay(display string) (*domain.Report, error) {
	report := &domain.Report{}
	for _, match := range displayFieldRe.FindAllStringSubmatch(display, -1) {
		label := strings.ToLower(strings.TrimSpace(match[1]))
		value := strings.TrimSpace(match[2])
		switch {
		case strings.Contains(label, "measurement"):
			decoded, err := hex.DecodeString(value)
			if err == nil {
				report.Measurement = decoded
			}
		case strings.Contains(label, "platform version") || strings.Contains(label, "tcb"):
			report.PlatformVersion = value
		case strings.Contains(label, "signature"):
			decoded, err := hex.DecodeString(value)
			if err == nil {
				report.Signature = decoded
			}
		}
	}
	if report.Measurement == nil {
		return nil, fmt.Errorf("no measurement field found in guest tool output")
	}
	return report, nil
}
