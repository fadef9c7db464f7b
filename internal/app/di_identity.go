package app

import (
	"context"
	"fmt"

	attestationDomain "github.com/snpvault/enclave-core/internal/attestation/domain"
	attestationService "github.com/snpvault/enclave-core/internal/attestation/service"
	"github.com/snpvault/enclave-core/internal/bootstrap"
	identityService "github.com/snpvault/enclave-core/internal/identity/service"
)

// TLSIdentity returns the enclave's self-signed TLS identity service,
// generating the key pair and certificate on first access.
func (c *Container) TLSIdentity() *identityService.TLSIdentityService {
	c.tlsIdentityInit.Do(func() {
		c.tlsIdentity = identityService.NewTLSIdentityService()
	})
	return c.tlsIdentity
}

// E2EChannel returns the enclave's static ECDH channel service.
func (c *Container) E2EChannel() *identityService.E2EChannelService {
	c.e2eChannelInit.Do(func() {
		c.e2eChannel = identityService.NewE2EChannelService()
	})
	return c.e2eChannel
}

// AttestationProvider returns the hardware attestation provider, or the
// development bypass outside production. Selecting the bypass in
// production is refused one level up, in Bootstrap.
func (c *Container) AttestationProvider() attestationService.Provider {
	c.attestationProviderInit.Do(func() {
		if c.config.IsProduction() {
			c.attestationProvider = attestationService.NewSNPProvider(
				c.config.GuestToolPath,
				c.config.InstanceMetadataURL,
				c.config.ProcessorFamily,
			)
			return
		}
		c.attestationProvider = attestationService.NewDevProvider()
	})
	return c.attestationProvider
}

// RequestData returns the 64-byte attestation binding field computed from
// the TLS certificate and E2E public key (4.F step 4).
func (c *Container) RequestData() ([attestationDomain.ReportDataSize]byte, error) {
	return onceErr(&c.requestDataInit, c.initErrors, "requestData", func() ([attestationDomain.ReportDataSize]byte, error) {
		tls, err := c.TLSIdentity().GetCredentials()
		if err != nil {
			return [attestationDomain.ReportDataSize]byte{}, fmt.Errorf("request data: %w", err)
		}
		e2e, err := c.E2EChannel().GetIdentity()
		if err != nil {
			return [attestationDomain.ReportDataSize]byte{}, fmt.Errorf("request data: %w", err)
		}
		return bootstrap.BuildRequestData(tls, e2e), nil
	}, func() [attestationDomain.ReportDataSize]byte { return c.requestData }, func(v [attestationDomain.ReportDataSize]byte) { c.requestData = v })
}

// AttestationReport returns the single attestation report obtained during
// bootstrap (4.F step 5). Bootstrap must call it once, early, so its abort
// decision runs before anything else starts; later callers just observe the
// cached result.
func (c *Container) AttestationReport(ctx context.Context) (*attestationDomain.Report, error) {
	return onceErr(&c.attestationReportInit, c.initErrors, "attestationReport", func() (*attestationDomain.Report, error) {
		requestData, err := c.RequestData()
		if err != nil {
			return nil, fmt.Errorf("attestation report: %w", err)
		}
		return bootstrap.Attest(
			ctx,
			c.AttestationProvider(),
			requestData,
			c.config.IsProduction(),
			c.config.AttestationBypass,
			c.Logger(),
		)
	}, func() *attestationDomain.Report { return c.attestationReport }, func(v *attestationDomain.Report) { c.attestationReport = v })
}
