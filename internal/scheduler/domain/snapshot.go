// Package domain defines the daily account-snapshot record and the
// scheduler's run-history record.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one exchange-connection balance observation taken at a fixed
// wall-clock instant, inside the attested enclave.
type Snapshot struct {
	ID                uuid.UUID
	UserUID           string
	Exchange          string
	Label             string
	Timestamp         time.Time
	TotalEquity       string // numeric(36,18) as decimal string; never float64
	RealizedBalance   string
	UnrealizedPnL     string
	Deposits          string
	Withdrawals       string
	BreakdownByMarket map[string]any
	CreatedAt         time.Time
}
