package registry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/mktplane/tradecore/types"
)

// InitialSequenceLoader resolves the next sequence to use for each stream
// of a security that has never been seen by this registry process,
// together with that security's close price.
type InitialSequenceLoader interface {
	LoadInitialSequences(security types.Security) (InitialSequences, types.Money, error)
}

// Registry partitions market data by security; each per-security Entry is
// guarded by its own lock, and the security->entry map is guarded
// separately so no lock is ever held across a publish to subscribers.
type Registry struct {
	mu       sync.RWMutex
	entries  map[types.Security]*Entry
	loader   InitialSequenceLoader
	sequence prometheus.Gauge
}

// NewRegistry constructs an empty Registry. loader may be nil, in which
// case newly seen securities start their sequencers at zero.
func NewRegistry(loader InitialSequenceLoader) *Registry {
	return &Registry{
		entries: make(map[types.Security]*Entry),
		loader:  loader,
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "registry_securities_tracked",
			Help: "Number of securities with at least one published entry.",
		}),
	}
}

// Collect exposes the registry's gauge to a prometheus registerer.
func (r *Registry) Collect() prometheus.Collector { return r.sequence }

// entryFor returns the Entry for a security, creating it on first use. A
// freshly created entry is seeded via the InitialSequenceLoader if one was
// configured.
func (r *Registry) entryFor(security types.Security) *Entry {
	r.mu.RLock()
	entry, ok := r.entries[security]
	r.mu.RUnlock()
	if ok {
		return entry
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[security]; ok {
		return entry
	}
	var initial InitialSequences
	var closePrice types.Money
	if r.loader != nil {
		loaded, price, err := r.loader.LoadInitialSequences(security)
		if err != nil {
			log.Error().Err(err).Stringer("security", security).Msg("failed to load initial sequences, starting from zero")
		} else {
			initial, closePrice = loaded, price
		}
	}
	entry = NewEntry(security, closePrice, initial)
	r.entries[security] = entry
	r.sequence.Set(float64(len(r.entries)))
	return entry
}

// PublishBboQuote publishes a BboQuote for a security, creating its Entry
// if needed.
func (r *Registry) PublishBboQuote(security types.Security, quote types.BboQuote) types.SequencedValue[types.BboQuote] {
	return r.entryFor(security).PublishBboQuote(quote)
}

// PublishMarketQuote publishes a MarketQuote for a security.
func (r *Registry) PublishMarketQuote(security types.Security, quote types.MarketQuote) types.SequencedValue[types.MarketQuote] {
	return r.entryFor(security).PublishMarketQuote(quote)
}

// UpdateBookQuote merges a book-quote delta for a security.
func (r *Registry) UpdateBookQuote(security types.Security, delta types.BookQuote, sourceID int) (types.SequencedValue[types.BookQuote], bool) {
	return r.entryFor(security).UpdateBookQuote(delta, sourceID)
}

// PublishTimeAndSale publishes a trade print for a security.
func (r *Registry) PublishTimeAndSale(security types.Security, timeAndSale types.TimeAndSale) types.SequencedValue[types.TimeAndSale] {
	return r.entryFor(security).PublishTimeAndSale(timeAndSale)
}

// LoadSnapshot returns the current snapshot for a security, or ok=false if
// the security has never been published to this registry - a distinct
// result from an all-zero snapshot (Design Notes §9).
func (r *Registry) LoadSnapshot(security types.Security) (types.SecuritySnapshot, bool) {
	r.mu.RLock()
	entry, ok := r.entries[security]
	r.mu.RUnlock()
	if !ok {
		return types.SecuritySnapshot{}, false
	}
	return entry.LoadSnapshot(), true
}

// LoadTechnicals returns the current SecurityTechnicals for a security, or
// ok=false if it has never been published.
func (r *Registry) LoadTechnicals(security types.Security) (types.SecurityTechnicals, bool) {
	r.mu.RLock()
	entry, ok := r.entries[security]
	r.mu.RUnlock()
	if !ok {
		return types.SecurityTechnicals{}, false
	}
	return entry.Technicals(), true
}

// Clear removes book entries tagged with sourceID from every tracked
// security, used when a feed source disconnects.
func (r *Registry) Clear(sourceID int) {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()
	for _, entry := range entries {
		entry.Clear(sourceID)
	}
}
