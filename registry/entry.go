// Package registry implements the in-process security registry: a
// per-security snapshot engine that sequences and merges BBO, market
// quotes, a per-MPID order book, time-and-sales and day technicals from
// multiple feed sources.
package registry

import (
	"sync"

	"github.com/mktplane/tradecore/types"
)

// InitialSequences seeds the four per-security sequencers from an
// InitialSequenceLoader's LoadInitialSequences result.
type InitialSequences struct {
	NextBboQuoteSequence    types.Sequence
	NextBookQuoteSequence   types.Sequence
	NextMarketQuoteSequence types.Sequence
	NextTimeAndSaleSequence types.Sequence
}

type bookQuoteEntry struct {
	quote    types.BookQuote
	sequence types.Sequence
	sourceID int
}

// Entry keeps track of one security's market data. Every mutating method
// takes the entry's lock; no lock is ever held across a call out to a
// subscriber.
type Entry struct {
	mu sync.Mutex

	security types.Security

	bboSequencer         *types.Sequencer
	marketQuoteSequencer *types.Sequencer
	bookQuoteSequencer   *types.Sequencer
	timeAndSaleSequencer *types.Sequencer

	technicals types.SecurityTechnicals

	bboQuote    types.BboQuote
	haveBbo     bool
	timeAndSale types.TimeAndSale
	haveTrade   bool

	marketQuotes map[types.MarketCode]types.MarketQuote

	askBook []bookQuoteEntry
	bidBook []bookQuoteEntry
}

// NewEntry constructs an Entry for a security that has never published
// before, seeded with the close price and the next sequence to use on each
// stream.
func NewEntry(security types.Security, closePrice types.Money, initial InitialSequences) *Entry {
	e := &Entry{
		security:             security,
		bboSequencer:         types.NewSequencer(initial.NextBboQuoteSequence),
		marketQuoteSequencer: types.NewSequencer(initial.NextMarketQuoteSequence),
		bookQuoteSequencer:   types.NewSequencer(initial.NextBookQuoteSequence),
		timeAndSaleSequencer: types.NewSequencer(initial.NextTimeAndSaleSequence),
		marketQuotes:         make(map[types.MarketCode]types.MarketQuote),
	}
	e.technicals.Open = closePrice
	e.technicals.PriorClose = closePrice
	return e
}

// Security returns the security this entry tracks.
func (e *Entry) Security() types.Security {
	return e.security
}

// PublishBboQuote assigns the next BBO sequence, overwrites the latest BBO
// and returns the sequenced value.
func (e *Entry) PublishBboQuote(quote types.BboQuote) types.SequencedValue[types.BboQuote] {
	e.mu.Lock()
	defer e.mu.Unlock()
	seq := e.bboSequencer.IncrementNextSequence(quote.Timestamp)
	e.bboQuote = quote
	e.haveBbo = true
	return types.SequencedValue[types.BboQuote]{Value: quote, Sequence: seq, Security: e.security}
}

// PublishMarketQuote assigns the next market-quote sequence and upserts the
// market's entry in the per-market-code map.
func (e *Entry) PublishMarketQuote(quote types.MarketQuote) types.SequencedValue[types.MarketQuote] {
	e.mu.Lock()
	defer e.mu.Unlock()
	seq := e.marketQuoteSequencer.IncrementNextSequence(quote.Timestamp)
	e.marketQuotes[quote.Market] = quote
	return types.SequencedValue[types.MarketQuote]{Value: quote, Sequence: seq, Security: e.security}
}

// bookOf returns the ask or bid book slice pointer for the given side.
func (e *Entry) bookOf(side types.Side) *[]bookQuoteEntry {
	if side == types.SideAsk {
		return &e.askBook
	}
	return &e.bidBook
}

// lowerBound returns the index of the first entry that is not "before"
// delta in side-specific (price, MPID) order, or len(book) if none.
func lowerBound(book []bookQuoteEntry, side types.Side, delta types.BookQuote) int {
	for i, entry := range book {
		if !bookQuoteBefore(side, entry.quote, delta) {
			return i
		}
	}
	return len(book)
}

// bookQuoteBefore orders book entries by price (ascending for asks,
// descending for bids), then by MPID as a tiebreak, matching the source's
// BookQuoteListingComparator.
func bookQuoteBefore(side types.Side, a, b types.BookQuote) bool {
	if !a.Quote.Price.Equal(b.Quote.Price) {
		if side == types.SideAsk {
			return a.Quote.Price.LessThan(b.Quote.Price)
		}
		return a.Quote.Price.GreaterThan(b.Quote.Price)
	}
	return a.MPID < b.MPID
}

// UpdateBookQuote merges a book-quote delta into the side's ordered list.
// Returns the resulting sequenced quote, or ok=false if the delta was a
// no-op (a zero/negative size for a position that doesn't exist yet).
func (e *Entry) UpdateBookQuote(delta types.BookQuote, sourceID int) (types.SequencedValue[types.BookQuote], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	book := e.bookOf(delta.Quote.Side)
	idx := lowerBound(*book, delta.Quote.Side, delta)
	if idx == len(*book) {
		if delta.Quote.Size <= 0 {
			return types.SequencedValue[types.BookQuote]{}, false
		}
		seq := e.bookQuoteSequencer.IncrementNextSequence(delta.Timestamp)
		*book = append(*book, bookQuoteEntry{quote: delta, sequence: seq, sourceID: sourceID})
		return types.SequencedValue[types.BookQuote]{Value: delta, Sequence: seq, Security: e.security}, true
	}
	entry := &(*book)[idx]
	if !entry.quote.Quote.Price.Equal(delta.Quote.Price) || entry.quote.MPID != delta.MPID {
		if delta.Quote.Size <= 0 {
			return types.SequencedValue[types.BookQuote]{}, false
		}
		seq := e.bookQuoteSequencer.IncrementNextSequence(delta.Timestamp)
		if entry.quote.Quote.Size == 0 {
			*entry = bookQuoteEntry{quote: delta, sequence: seq, sourceID: sourceID}
			return types.SequencedValue[types.BookQuote]{Value: delta, Sequence: seq, Security: e.security}, true
		}
		newEntry := bookQuoteEntry{quote: delta, sequence: seq, sourceID: sourceID}
		*book = append(*book, bookQuoteEntry{})
		copy((*book)[idx+1:], (*book)[idx:])
		(*book)[idx] = newEntry
		return types.SequencedValue[types.BookQuote]{Value: delta, Sequence: seq, Security: e.security}, true
	}
	newSize := entry.quote.Quote.Size + delta.Quote.Size
	if newSize < 0 {
		newSize = 0
	}
	entry.quote.Quote.Size = newSize
	entry.quote.Timestamp = delta.Timestamp
	entry.sequence = e.bookQuoteSequencer.IncrementNextSequence(delta.Timestamp)
	entry.sourceID = sourceID
	return types.SequencedValue[types.BookQuote]{Value: entry.quote, Sequence: entry.sequence, Security: e.security}, true
}

// PublishTimeAndSale records a trade print, rolling it into the day's
// technicals, and assigns the next time-and-sale sequence.
func (e *Entry) PublishTimeAndSale(timeAndSale types.TimeAndSale) types.SequencedValue[types.TimeAndSale] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.technicals.Open.IsZero() {
		e.technicals.Open = timeAndSale.Price
	}
	if e.technicals.High.IsZero() || timeAndSale.Price.GreaterThan(e.technicals.High) {
		e.technicals.High = timeAndSale.Price
	}
	if e.technicals.Low.IsZero() || timeAndSale.Price.LessThan(e.technicals.Low) {
		e.technicals.Low = timeAndSale.Price
	}
	e.technicals.Volume += timeAndSale.Size
	seq := e.timeAndSaleSequencer.IncrementNextSequence(timeAndSale.Timestamp)
	e.timeAndSale = timeAndSale
	e.haveTrade = true
	return types.SequencedValue[types.TimeAndSale]{Value: timeAndSale, Sequence: seq, Security: e.security}
}

// Technicals returns the current SecurityTechnicals snapshot.
func (e *Entry) Technicals() types.SecurityTechnicals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.technicals
}

// LoadSnapshot returns the entry's current merged view, filtered to book
// entries with positive size.
func (e *Entry) LoadSnapshot() types.SecuritySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := types.SecuritySnapshot{
		Security:     e.security,
		MarketQuotes: make(map[types.MarketCode]types.MarketQuote, len(e.marketQuotes)),
	}
	if e.haveBbo {
		snapshot.BboQuote = e.bboQuote
	}
	if e.haveTrade {
		snapshot.TimeAndSale = e.timeAndSale
	}
	for code, quote := range e.marketQuotes {
		snapshot.MarketQuotes[code] = quote
	}
	for _, entry := range e.askBook {
		if entry.quote.Quote.Size > 0 {
			snapshot.AskBook = append(snapshot.AskBook, entry.quote)
		}
	}
	for _, entry := range e.bidBook {
		if entry.quote.Quote.Size > 0 {
			snapshot.BidBook = append(snapshot.BidBook, entry.quote)
		}
	}
	return snapshot
}

// Clear removes every book entry (either side) tagged with sourceID, used
// when a feed source disconnects.
func (e *Entry) Clear(sourceID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.askBook = filterBySource(e.askBook, sourceID)
	e.bidBook = filterBySource(e.bidBook, sourceID)
}

func filterBySource(book []bookQuoteEntry, sourceID int) []bookQuoteEntry {
	out := book[:0:0]
	for _, entry := range book {
		if entry.sourceID != sourceID {
			out = append(out, entry)
		}
	}
	return out
}
