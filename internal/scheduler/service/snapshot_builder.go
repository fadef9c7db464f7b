// Package service composes one Snapshot per credential record from a
// connector's base contract plus whatever optional capability interfaces
// it implements.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/scheduler/connector"
	"github.com/snpvault/enclave-core/internal/scheduler/domain"
)

// BuildSnapshot invokes conn's base GetBalance call and, for every optional
// capability conn also implements, folds the extra detail into the
// snapshot's breakdown map. timestamp is shared across every snapshot in
// one tick so a user's records always land on the same wall-clock instant.
func BuildSnapshot(
	ctx context.Context,
	conn connector.Connector,
	creds connector.Credentials,
	userUID, exchange, label string,
	timestamp time.Time,
) (*domain.Snapshot, error) {
	balance, err := conn.GetBalance(ctx, creds)
	if err != nil {
		return nil, domain.ErrConnector
	}
	if balance == nil {
		return nil, domain.ErrConnector
	}

	snapshot := &domain.Snapshot{
		ID:              uuid.Must(uuid.NewV7()),
		UserUID:         userUID,
		Exchange:        exchange,
		Label:           label,
		Timestamp:       timestamp,
		TotalEquity:     balance.TotalEquity,
		RealizedBalance: balance.RealizedBalance,
		UnrealizedPnL:   balance.UnrealizedPnL,
		Deposits:        balance.Deposits,
		Withdrawals:     balance.Withdrawals,
		CreatedAt:       time.Now().UTC(),
	}

	breakdown := map[string]any{}

	// Prefer the richest optional capability the connector exposes for the
	// primary breakdown detail: per-market breakdown first, historical
	// summaries since the prior tick as a fallback, and the plain global
	// balance (already captured above) if neither is available.
	switch provider := conn.(type) {
	case connector.MarketBreakdownProvider:
		markets, err := provider.GetMarketBreakdown(ctx, creds)
		if err != nil {
			return nil, domain.ErrConnector
		}
		if markets != nil {
			breakdown["by_market"] = map[string]any(markets)
		}
	case connector.HistoricalSummaryProvider:
		since := timestamp.Add(-24 * time.Hour).Unix()
		summaries, err := provider.GetHistoricalSummaries(ctx, creds, since)
		if err != nil {
			return nil, domain.ErrConnector
		}
		if summaries != nil {
			breakdown["historical_summary"] = summaries
		}
	}

	if provider, ok := conn.(connector.EarnBalanceProvider); ok {
		earn, err := provider.GetEarnBalance(ctx, creds)
		if err != nil {
			return nil, domain.ErrConnector
		}
		if earn != nil {
			breakdown["earn"] = earn
		}
	}

	if len(breakdown) > 0 {
		snapshot.BreakdownByMarket = breakdown
	}

	return snapshot, nil
}
