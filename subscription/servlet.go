package subscription

import (
	"github.com/mktplane/tradecore/registry"
	"github.com/mktplane/tradecore/types"
)

// MarketDataServlet combines a security registry with entitlement-gated,
// indexed subscription tables: the direct analogue of the registry
// servlet's Publish*/subscription wiring, adapted to per-session websocket
// delivery instead of a binary service protocol.
type MarketDataServlet struct {
	registry     *registry.Registry
	entitlements EntitlementDatabase

	bboSubs       *IndexedSubscriptions[types.SequencedValue[types.BboQuote], types.Security, *Session]
	marketSubs    *IndexedSubscriptions[types.SequencedValue[types.MarketQuote], types.Security, *Session]
	bookSubs      *IndexedSubscriptions[types.SequencedValue[types.BookQuote], types.Security, *Session]
	tsSubs        *IndexedSubscriptions[types.SequencedValue[types.TimeAndSale], types.Security, *Session]
	imbalanceSubs *IndexedSubscriptions[types.OrderImbalance, types.MarketCode, *Session]
	imbalanceSeq  *types.Sequencer
}

// NewMarketDataServlet constructs a servlet over a registry and entitlement
// database.
func NewMarketDataServlet(reg *registry.Registry, entitlements EntitlementDatabase) *MarketDataServlet {
	return &MarketDataServlet{
		registry:      reg,
		entitlements:  entitlements,
		bboSubs:       NewIndexedSubscriptions[types.SequencedValue[types.BboQuote], types.Security, *Session](),
		marketSubs:    NewIndexedSubscriptions[types.SequencedValue[types.MarketQuote], types.Security, *Session](),
		bookSubs:      NewIndexedSubscriptions[types.SequencedValue[types.BookQuote], types.Security, *Session](),
		tsSubs:        NewIndexedSubscriptions[types.SequencedValue[types.TimeAndSale], types.Security, *Session](),
		imbalanceSubs: NewIndexedSubscriptions[types.OrderImbalance, types.MarketCode, *Session](),
		imbalanceSeq:  types.NewSequencer(0),
	}
}

// HandleSessionAccepted grants a newly accepted session the union of its
// account's parent groups' entitlements.
func (m *MarketDataServlet) HandleSessionAccepted(session *Session, parentGroups []string) {
	session.Entitlements = m.entitlements.EntitlementsFor(parentGroups)
}

// HandleSessionClosed removes every subscription the session held, across
// every data type.
func (m *MarketDataServlet) HandleSessionClosed(session *Session) {
	m.bboSubs.RemoveAll(session)
	m.marketSubs.RemoveAll(session)
	m.bookSubs.RemoveAll(session)
	m.tsSubs.RemoveAll(session)
	m.imbalanceSubs.RemoveAll(session)
}

func broadcast[T any](value T) func(clients []*Session) {
	return func(clients []*Session) {
		for _, c := range clients {
			c.Send(value)
		}
	}
}

// PublishBboQuote updates the registry and forwards the result to every
// subscriber whose range and predicate match.
func (m *MarketDataServlet) PublishBboQuote(security types.Security, quote types.BboQuote) {
	sv := m.registry.PublishBboQuote(security, quote)
	m.bboSubs.Publish(security, sv, sv.Sequence, nil, broadcast(sv))
}

// PublishMarketQuote updates the registry and forwards the result.
func (m *MarketDataServlet) PublishMarketQuote(security types.Security, quote types.MarketQuote) {
	sv := m.registry.PublishMarketQuote(security, quote)
	m.marketSubs.Publish(security, sv, sv.Sequence, nil, broadcast(sv))
}

// UpdateBookQuote merges a book-quote delta into the registry and, if it
// produced a change, forwards it to subscribers entitled to that
// (primary-market, source-market) pair for BOOK_QUOTE.
func (m *MarketDataServlet) UpdateBookQuote(security types.Security, delta types.BookQuote, sourceID int) {
	sv, changed := m.registry.UpdateBookQuote(security, delta, sourceID)
	if !changed {
		return
	}
	key := EntitlementKey{Market: security.Market, SourceMarket: delta.Market}
	entitled := func(session *Session) bool {
		return session.Entitlements.HasEntitlement(key, MarketDataTypeBookQuote)
	}
	m.bookSubs.Publish(security, sv, sv.Sequence, entitled, broadcast(sv))
}

// PublishTimeAndSale updates the registry and forwards the trade print.
func (m *MarketDataServlet) PublishTimeAndSale(security types.Security, timeAndSale types.TimeAndSale) {
	sv := m.registry.PublishTimeAndSale(security, timeAndSale)
	m.tsSubs.Publish(security, sv, sv.Sequence, nil, broadcast(sv))
}

// PublishOrderImbalance forwards a market-wide order imbalance to every
// subscriber of that market. Order imbalances are not persisted in the
// in-process registry, only fanned out live.
func (m *MarketDataServlet) PublishOrderImbalance(market types.MarketCode, imbalance types.OrderImbalance) {
	sequence := m.imbalanceSeq.IncrementNextSequence(imbalance.Timestamp)
	m.imbalanceSubs.Publish(market, imbalance, sequence, nil, broadcast(imbalance))
}

// SubscribeBboQuotes opens a buffered subscription, loads the current
// snapshot, then commits: the snapshot's BboQuote plus anything buffered
// during the load are delivered once, after which live updates flow
// directly.
func (m *MarketDataServlet) SubscribeBboQuotes(session *Session, security types.Security, queryID string, rangeFilter RangeFilter, predicate Predicate[types.SequencedValue[types.BboQuote]]) {
	m.bboSubs.Initialize(security, session, queryID, rangeFilter, predicate)
	if snapshot, ok := m.registry.LoadSnapshot(security); ok {
		session.Send(snapshot.BboQuote)
	}
	m.bboSubs.Commit(security, session, queryID, func(v types.SequencedValue[types.BboQuote]) {
		session.Send(v)
	})
}

// EndBboQuoteQuery removes a subscription.
func (m *MarketDataServlet) EndBboQuoteQuery(session *Session, security types.Security, queryID string) {
	m.bboSubs.End(security, session, queryID)
}

// LoadSecuritySnapshot returns the registry's snapshot for a security.
func (m *MarketDataServlet) LoadSecuritySnapshot(security types.Security) (types.SecuritySnapshot, bool) {
	return m.registry.LoadSnapshot(security)
}

// LoadSecurityTechnicals returns the registry's technicals for a security.
func (m *MarketDataServlet) LoadSecurityTechnicals(security types.Security) (types.SecurityTechnicals, bool) {
	return m.registry.LoadTechnicals(security)
}
