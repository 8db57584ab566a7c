// Package store defines the historical market-data persistence boundary.
// No SQL-backed implementation is provided - the core only depends on this
// interface, and a concrete store is a deployment concern outside this
// module's scope.
package store

import (
	"context"

	"github.com/mktplane/tradecore/types"
)

// Range bounds a query by sequence, inclusive on both ends.
type Range struct {
	Start types.Sequence
	End   types.Sequence
}

// HistoricalDataStore is the read path the backtester and replay feed use
// to page through recorded market data. Implementations return at most
// limit items ordered by ascending sequence.
type HistoricalDataStore interface {
	LoadBboQuotes(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.BboQuote], error)
	LoadMarketQuotes(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.MarketQuote], error)
	LoadBookQuotes(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.BookQuote], error)
	LoadTimeAndSales(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.TimeAndSale], error)
}
