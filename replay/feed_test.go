package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mktplane/tradecore/internal/clock"
	"github.com/mktplane/tradecore/registry"
	"github.com/mktplane/tradecore/store"
	"github.com/mktplane/tradecore/types"
)

var replaySecurity = types.Security{Symbol: "R", Market: "NSDQ", Country: "US"}

type advancingTimer struct {
	clock *clock.IncrementalClock
}

func (t advancingTimer) Wait(d time.Duration) { t.clock.Advance(d) }

func TestFeedRepublishesInOriginalRelativeTiming(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	mem.Bbo[replaySecurity] = []types.SequencedValue[types.BboQuote]{
		{Security: replaySecurity, Sequence: 0, Value: types.BboQuote{Timestamp: start.Add(time.Second)}},
		{Security: replaySecurity, Sequence: 1, Value: types.BboQuote{Timestamp: start.Add(3 * time.Second)}},
	}

	clk := clock.NewIncrementalClock(start)
	reg := registry.NewRegistry(nil)
	feed := NewFeed([]types.Security{replaySecurity}, start, mem, reg, clk, advancingTimer{clock: clk})

	err := feed.Run(context.Background())
	require.NoError(t, err)

	snapshot, ok := reg.LoadSnapshot(replaySecurity)
	require.True(t, ok)
	require.Equal(t, start.Add(3*time.Second), snapshot.BboQuote.Timestamp)
	require.Equal(t, start.Add(3*time.Second), clk.Now())
}

func TestFeedContextCancellationStopsReplay(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	mem.Bbo[replaySecurity] = []types.SequencedValue[types.BboQuote]{
		{Security: replaySecurity, Sequence: 0, Value: types.BboQuote{Timestamp: start.Add(time.Hour)}},
	}

	clk := clock.NewIncrementalClock(start)
	reg := registry.NewRegistry(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	feed := NewFeed([]types.Security{replaySecurity}, start, mem, reg, clk, advancingTimer{clock: clk})

	err := feed.Run(ctx)
	require.Error(t, err)
}
