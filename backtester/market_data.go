package backtester

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mktplane/tradecore/registry"
	"github.com/mktplane/tradecore/store"
	"github.com/mktplane/tradecore/types"
)

// querySize is the page size used to walk a HistoricalDataStore, matching
// the replay feed's own paging convention.
const querySize = 1000

// backtesterSourceID tags every book-quote delta republished from history;
// a backtester run replays a single recorded source, so no disambiguation
// between sources is needed.
const backtesterSourceID = 0

// MarketDataFeed schedules one Event per recorded market-data value for a
// security, in sequence order, each firing at its original timestamp and
// republishing into a Registry so downstream subscribers see the same feed
// shape they would against a live source.
type MarketDataFeed struct {
	ctx      context.Context
	security types.Security
	store    store.HistoricalDataStore
	registry *registry.Registry
	handler  *EventHandler
}

// NewMarketDataFeed constructs a feed that will drive registry publishes
// for security from store, scheduled on handler.
func NewMarketDataFeed(ctx context.Context, security types.Security, dataStore store.HistoricalDataStore, reg *registry.Registry, handler *EventHandler) *MarketDataFeed {
	return &MarketDataFeed{ctx: ctx, security: security, store: dataStore, registry: reg, handler: handler}
}

// Start enqueues the first query for each of the four streams, each
// advancing independently from there.
func (f *MarketDataFeed) Start() {
	now := f.handler.GetTime()
	f.handler.Add(&bboQueryEvent{feed: f, at: now, start: 0})
	f.handler.Add(&marketQueryEvent{feed: f, at: now, start: 0})
	f.handler.Add(&bookQueryEvent{feed: f, at: now, start: 0})
	f.handler.Add(&timeAndSaleQueryEvent{feed: f, at: now, start: 0})
}

// bboQueryEvent loads the next page of BBO quotes starting from a
// sequence, schedules one publish event per value at its recorded
// timestamp, and re-queries once the page has played out.
type bboQueryEvent struct {
	feed  *MarketDataFeed
	at    time.Time
	start types.Sequence
}

func (e *bboQueryEvent) Timestamp() time.Time { return e.at }

func (e *bboQueryEvent) Execute() {
	page, err := e.feed.store.LoadBboQuotes(e.feed.ctx, e.feed.security, store.Range{Start: e.start, End: types.SequenceLast}, querySize)
	if err != nil {
		log.Error().Err(err).Stringer("security", e.feed.security).Msg("backtester: failed to load bbo quotes")
		return
	}
	if len(page) == 0 {
		return
	}
	for _, value := range page {
		e.feed.handler.Add(&bboPublishEvent{feed: e.feed, value: value})
	}
	if len(page) == querySize {
		next := page[len(page)-1].Sequence + 1
		e.feed.handler.Add(&bboQueryEvent{feed: e.feed, at: page[len(page)-1].Value.Timestamp, start: next})
	}
}

type bboPublishEvent struct {
	feed  *MarketDataFeed
	value types.SequencedValue[types.BboQuote]
}

func (e *bboPublishEvent) Timestamp() time.Time { return e.value.Value.Timestamp }
func (e *bboPublishEvent) Execute()             { e.feed.registry.PublishBboQuote(e.feed.security, e.value.Value) }

type marketQueryEvent struct {
	feed  *MarketDataFeed
	at    time.Time
	start types.Sequence
}

func (e *marketQueryEvent) Timestamp() time.Time { return e.at }

func (e *marketQueryEvent) Execute() {
	page, err := e.feed.store.LoadMarketQuotes(e.feed.ctx, e.feed.security, store.Range{Start: e.start, End: types.SequenceLast}, querySize)
	if err != nil {
		log.Error().Err(err).Stringer("security", e.feed.security).Msg("backtester: failed to load market quotes")
		return
	}
	if len(page) == 0 {
		return
	}
	for _, value := range page {
		e.feed.handler.Add(&marketPublishEvent{feed: e.feed, value: value})
	}
	if len(page) == querySize {
		next := page[len(page)-1].Sequence + 1
		e.feed.handler.Add(&marketQueryEvent{feed: e.feed, at: page[len(page)-1].Value.Timestamp, start: next})
	}
}

type marketPublishEvent struct {
	feed  *MarketDataFeed
	value types.SequencedValue[types.MarketQuote]
}

func (e *marketPublishEvent) Timestamp() time.Time { return e.value.Value.Timestamp }
func (e *marketPublishEvent) Execute() {
	e.feed.registry.PublishMarketQuote(e.feed.security, e.value.Value)
}

type bookQueryEvent struct {
	feed  *MarketDataFeed
	at    time.Time
	start types.Sequence
}

func (e *bookQueryEvent) Timestamp() time.Time { return e.at }

func (e *bookQueryEvent) Execute() {
	page, err := e.feed.store.LoadBookQuotes(e.feed.ctx, e.feed.security, store.Range{Start: e.start, End: types.SequenceLast}, querySize)
	if err != nil {
		log.Error().Err(err).Stringer("security", e.feed.security).Msg("backtester: failed to load book quotes")
		return
	}
	if len(page) == 0 {
		return
	}
	for _, value := range page {
		e.feed.handler.Add(&bookPublishEvent{feed: e.feed, value: value})
	}
	if len(page) == querySize {
		next := page[len(page)-1].Sequence + 1
		e.feed.handler.Add(&bookQueryEvent{feed: e.feed, at: page[len(page)-1].Value.Timestamp, start: next})
	}
}

type bookPublishEvent struct {
	feed  *MarketDataFeed
	value types.SequencedValue[types.BookQuote]
}

func (e *bookPublishEvent) Timestamp() time.Time { return e.value.Value.Timestamp }
func (e *bookPublishEvent) Execute() {
	e.feed.registry.UpdateBookQuote(e.feed.security, e.value.Value, backtesterSourceID)
}

type timeAndSaleQueryEvent struct {
	feed  *MarketDataFeed
	at    time.Time
	start types.Sequence
}

func (e *timeAndSaleQueryEvent) Timestamp() time.Time { return e.at }

func (e *timeAndSaleQueryEvent) Execute() {
	page, err := e.feed.store.LoadTimeAndSales(e.feed.ctx, e.feed.security, store.Range{Start: e.start, End: types.SequenceLast}, querySize)
	if err != nil {
		log.Error().Err(err).Stringer("security", e.feed.security).Msg("backtester: failed to load time and sales")
		return
	}
	if len(page) == 0 {
		return
	}
	for _, value := range page {
		e.feed.handler.Add(&timeAndSalePublishEvent{feed: e.feed, value: value})
	}
	if len(page) == querySize {
		next := page[len(page)-1].Sequence + 1
		e.feed.handler.Add(&timeAndSaleQueryEvent{feed: e.feed, at: page[len(page)-1].Value.Timestamp, start: next})
	}
}

type timeAndSalePublishEvent struct {
	feed  *MarketDataFeed
	value types.SequencedValue[types.TimeAndSale]
}

func (e *timeAndSalePublishEvent) Timestamp() time.Time { return e.value.Value.Timestamp }
func (e *timeAndSalePublishEvent) Execute() {
	e.feed.registry.PublishTimeAndSale(e.feed.security, e.value.Value)
}
