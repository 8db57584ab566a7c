// Package replay sends historical market data to a registry at the pace it
// was originally recorded, rewriting timestamps to the current wall clock
// as it goes - a rehearsal feed for replaying a recorded session live.
package replay

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mktplane/tradecore/internal/clock"
	"github.com/mktplane/tradecore/registry"
	"github.com/mktplane/tradecore/store"
	"github.com/mktplane/tradecore/types"
)

// querySize pages of this many values are loaded per store query.
const querySize = 1000

// waitQuantum bounds how long a single Timer.Wait call sleeps, so a long
// gap between two recorded values is paced out in increments rather than
// slept in one call.
const waitQuantum = time.Second

// Timer paces real time during replay. RealTimer sleeps the wall clock;
// tests substitute a Timer that also advances a fake Clock so a feed can be
// exercised without actually waiting.
type Timer interface {
	Wait(d time.Duration)
}

// RealTimer sleeps the wall clock.
type RealTimer struct{}

func (RealTimer) Wait(d time.Duration) { time.Sleep(d) }

// Feed replays four market-data streams (BBO, market quotes, book quotes,
// time and sales) per security from a HistoricalDataStore into a Registry,
// starting from replayTime and pacing out identically to how the data was
// originally recorded.
type Feed struct {
	securities []types.Security
	replayTime time.Time
	store      store.HistoricalDataStore
	registry   *registry.Registry
	clock      clock.Clock
	timer      Timer
}

// NewFeed constructs a Feed. timer defaults to RealTimer if nil.
func NewFeed(securities []types.Security, replayTime time.Time, dataStore store.HistoricalDataStore, reg *registry.Registry, clk clock.Clock, timer Timer) *Feed {
	if timer == nil {
		timer = RealTimer{}
	}
	return &Feed{securities: securities, replayTime: replayTime, store: dataStore, registry: reg, clock: clk, timer: timer}
}

// barrier blocks every stream's pacing loop until all 4*len(securities)
// streams have completed their first load, so every stream starts its
// clock-relative pacing from the same instant.
type barrier struct {
	mu        sync.Mutex
	cond      *sync.Cond
	remaining int
}

func newBarrier(n int) *barrier {
	b := &barrier{remaining: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining--
	if b.remaining == 0 {
		b.cond.Broadcast()
	} else {
		for b.remaining > 0 {
			b.cond.Wait()
		}
	}
}

// Run replays every stream for every security to completion or until ctx
// is canceled, fanning each of the 4*len(securities) streams out onto its
// own goroutine.
func (f *Feed) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	b := newBarrier(4 * len(f.securities))
	openTime := f.clock.Now()

	for _, security := range f.securities {
		security := security
		group.Go(func() error {
			return replayStream(ctx, f, security, b, openTime,
				f.store.LoadBboQuotes,
				func(security types.Security, value types.BboQuote) { f.registry.PublishBboQuote(security, value) },
				func(v types.BboQuote) time.Time { return v.Timestamp },
				func(v types.BboQuote, t time.Time) types.BboQuote { v.Timestamp = t; return v })
		})
		group.Go(func() error {
			return replayStream(ctx, f, security, b, openTime,
				f.store.LoadMarketQuotes,
				func(security types.Security, value types.MarketQuote) { f.registry.PublishMarketQuote(security, value) },
				func(v types.MarketQuote) time.Time { return v.Timestamp },
				func(v types.MarketQuote, t time.Time) types.MarketQuote { v.Timestamp = t; return v })
		})
		group.Go(func() error {
			return replayStream(ctx, f, security, b, openTime,
				f.store.LoadBookQuotes,
				func(security types.Security, value types.BookQuote) {
					f.registry.UpdateBookQuote(security, value, 0)
				},
				func(v types.BookQuote) time.Time { return v.Timestamp },
				func(v types.BookQuote, t time.Time) types.BookQuote { v.Timestamp = t; return v })
		})
		group.Go(func() error {
			return replayStream(ctx, f, security, b, openTime,
				f.store.LoadTimeAndSales,
				func(security types.Security, value types.TimeAndSale) { f.registry.PublishTimeAndSale(security, value) },
				func(v types.TimeAndSale) time.Time { return v.Timestamp },
				func(v types.TimeAndSale, t time.Time) types.TimeAndSale { v.Timestamp = t; return v })
		})
	}
	return group.Wait()
}

type loaderFunc[T any] func(ctx context.Context, security types.Security, r store.Range, limit int) ([]types.SequencedValue[T], error)

// replayStream paces a single stream of one security from the feed's
// replayTime, rewriting each value's timestamp to the wall clock moment it
// is published and drift-correcting replayTime by however long publishing
// and loading actually took, exactly as the original routine does.
func replayStream[T any](ctx context.Context, f *Feed, security types.Security, b *barrier, openTime time.Time, load loaderFunc[T], publish func(types.Security, T), getTimestamp func(T) time.Time, withTimestamp func(T, time.Time) T) error {
	data, err := load(ctx, security, store.Range{Start: 0, End: types.SequenceLast}, querySize)
	if err != nil {
		return err
	}

	b.arrive()

	currentTime := f.clock.Now()
	replayTime := f.replayTime.Add(currentTime.Sub(openTime))

	for len(data) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, item := range data {
			wait := getTimestamp(item.Value).Sub(replayTime)
			for wait > 0 {
				step := wait
				if step > waitQuantum {
					step = waitQuantum
				}
				f.timer.Wait(step)
				wait -= waitQuantum
			}
			publish(security, withTimestamp(item.Value, f.clock.Now()))
			updated := f.clock.Now()
			replayTime = replayTime.Add(updated.Sub(currentTime))
			currentTime = updated
		}
		next := data[len(data)-1].Sequence + 1
		data, err = load(ctx, security, store.Range{Start: next, End: types.SequenceLast}, querySize)
		if err != nil {
			return err
		}
		updated := f.clock.Now()
		replayTime = replayTime.Add(updated.Sub(currentTime))
		currentTime = updated
	}
	return nil
}
