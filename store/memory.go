package store

import (
	"context"

	"github.com/mktplane/tradecore/types"
)

// MemoryStore is an in-memory HistoricalDataStore, used by tests and the
// backtester's own test fixtures in place of a real persistence layer.
type MemoryStore struct {
	Bbo         map[types.Security][]types.SequencedValue[types.BboQuote]
	Market      map[types.Security][]types.SequencedValue[types.MarketQuote]
	Book        map[types.Security][]types.SequencedValue[types.BookQuote]
	TimeAndSale map[types.Security][]types.SequencedValue[types.TimeAndSale]
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Bbo:         make(map[types.Security][]types.SequencedValue[types.BboQuote]),
		Market:      make(map[types.Security][]types.SequencedValue[types.MarketQuote]),
		Book:        make(map[types.Security][]types.SequencedValue[types.BookQuote]),
		TimeAndSale: make(map[types.Security][]types.SequencedValue[types.TimeAndSale]),
	}
}

func page[T any](items []types.SequencedValue[T], r Range, limit int) []types.SequencedValue[T] {
	var out []types.SequencedValue[T]
	for _, item := range items {
		if item.Sequence < r.Start || item.Sequence > r.End {
			continue
		}
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *MemoryStore) LoadBboQuotes(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.BboQuote], error) {
	return page(s.Bbo[security], r, limit), nil
}

func (s *MemoryStore) LoadMarketQuotes(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.MarketQuote], error) {
	return page(s.Market[security], r, limit), nil
}

func (s *MemoryStore) LoadBookQuotes(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.BookQuote], error) {
	return page(s.Book[security], r, limit), nil
}

func (s *MemoryStore) LoadTimeAndSales(ctx context.Context, security types.Security, r Range, limit int) ([]types.SequencedValue[types.TimeAndSale], error) {
	return page(s.TimeAndSale[security], r, limit), nil
}
