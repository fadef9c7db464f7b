package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/attestation/domain"
)

func TestDevProvider_NeverVerifies(t *testing.T) {
	p := NewDevProvider()
	var requestData [domain.ReportDataSize]byte
	copy(requestData[:], []byte("binding-blob"))

	report, err := p.GetReport(context.Background(), requestData)
	require.NoError(t, err)
	assert.False(t, report.Verified)
	assert.Equal(t, requestData[:], report.ReportData)

	verified, err := p.VerifyChain(context.Background(), report)
	require.NoError(t, err)
	assert.False(t, verified)
}
