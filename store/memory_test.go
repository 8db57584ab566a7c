package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mktplane/tradecore/types"
)

var storeSecurity = types.Security{Symbol: "S", Market: "NSDQ", Country: "US"}

func TestMemoryStoreLoadBboQuotesRespectsRangeAndLimit(t *testing.T) {
	s := NewMemoryStore()
	for i := types.Sequence(0); i < 5; i++ {
		s.Bbo[storeSecurity] = append(s.Bbo[storeSecurity], types.SequencedValue[types.BboQuote]{Security: storeSecurity, Sequence: i})
	}

	page, err := s.LoadBboQuotes(context.Background(), storeSecurity, Range{Start: 1, End: types.SequenceLast}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, types.Sequence(1), page[0].Sequence)
	assert.Equal(t, types.Sequence(2), page[1].Sequence)
}

func TestMemoryStoreLoadReturnsEmptyPastEnd(t *testing.T) {
	s := NewMemoryStore()
	s.Bbo[storeSecurity] = []types.SequencedValue[types.BboQuote]{{Security: storeSecurity, Sequence: 0}}

	page, err := s.LoadBboQuotes(context.Background(), storeSecurity, Range{Start: 1, End: types.SequenceLast}, 1000)
	require.NoError(t, err)
	assert.Empty(t, page)
}
