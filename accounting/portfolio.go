package accounting

import (
	"sync"

	"github.com/mktplane/tradecore/types"
)

// SecurityValuation holds the most recently observed ask/bid prices used to
// mark a security's unrealized P&L. Either side may be unobserved (nil);
// a position whose valuation side is unobserved has zero unrealized P&L.
type SecurityValuation struct {
	Currency types.CurrencyId
	AskValue *types.Money
	BidValue *types.Money
}

// PortfolioEntry is a snapshot of one security's inventory, valuation and
// unrealized P&L, returned by ForEachPortfolioEntry.
type PortfolioEntry struct {
	Security   types.Security
	Inventory  Inventory
	Valuation  SecurityValuation
	Unrealized types.Money
}

type portfolioSecurityEntry struct {
	currency   types.CurrencyId
	askValue   *types.Money
	bidValue   *types.Money
	unrealized types.Money
}

// Portfolio wraps a Bookkeeper with per-security valuation tracking,
// recomputing unrealized P&L whenever a fill or a fresh valuation arrives
// and rolling the delta into a per-currency aggregate.
type Portfolio struct {
	mu                   sync.Mutex
	bookkeeper           *Bookkeeper
	entries              map[types.Security]*portfolioSecurityEntry
	unrealizedByCurrency map[types.CurrencyId]types.Money
}

// NewPortfolio constructs an empty Portfolio over a fresh Bookkeeper.
func NewPortfolio() *Portfolio {
	return &Portfolio{
		bookkeeper:           NewBookkeeper(),
		entries:              make(map[types.Security]*portfolioSecurityEntry),
		unrealizedByCurrency: make(map[types.CurrencyId]types.Money),
	}
}

func (p *Portfolio) entryFor(security types.Security, currency types.CurrencyId) *portfolioSecurityEntry {
	entry, ok := p.entries[security]
	if !ok {
		entry = &portfolioSecurityEntry{currency: currency}
		p.entries[security] = entry
	}
	return entry
}

// valuationPrice picks bid_value for a non-negative position and ask_value
// for a negative one; ok is false when that side has not been observed.
func valuationPrice(entry *portfolioSecurityEntry, quantity types.Quantity) (types.Money, bool) {
	if quantity >= 0 {
		if entry.bidValue != nil {
			return *entry.bidValue, true
		}
		return types.Zero, false
	}
	if entry.askValue != nil {
		return *entry.askValue, true
	}
	return types.Zero, false
}

// recomputeUnrealized reprices one security's unrealized P&L from its
// current inventory and most recent valuation, and rolls the delta into the
// currency-level aggregate. Caller must hold p.mu.
func (p *Portfolio) recomputeUnrealized(security types.Security) {
	entry := p.entries[security]
	if entry == nil {
		return
	}
	inv := p.bookkeeper.Inventory(security, entry.currency)
	newUnrealized := types.Zero
	if price, ok := valuationPrice(entry, inv.Quantity); ok {
		newUnrealized = price.MulQuantity(inv.Quantity).Sub(inv.CostBasis)
	}
	delta := newUnrealized.Sub(entry.unrealized)
	entry.unrealized = newUnrealized
	p.unrealizedByCurrency[entry.currency] = p.unrealizedByCurrency[entry.currency].Add(delta)
}

// Update folds an execution report into the portfolio: if last_quantity is
// zero there is nothing to record. Otherwise q = direction(side) *
// last_quantity is recorded against the security's inventory at last_price,
// fees are the sum of execution, processing and commission fees, and
// unrealized P&L is recomputed from the most recent valuation.
func (p *Portfolio) Update(fields types.OrderFields, report types.ExecutionReport) {
	if report.LastQuantity == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entryFor(fields.Security, fields.Currency)
	q := types.Quantity(fields.Side.Direction()) * report.LastQuantity
	p.bookkeeper.RecordTransaction(fields.Security, fields.Currency, q, report.LastPrice, report.TotalFees())
	p.recomputeUnrealized(fields.Security)
}

// UpdateAsk records a fresh ask valuation for a security and recomputes its
// unrealized P&L.
func (p *Portfolio) UpdateAsk(security types.Security, currency types.CurrencyId, askValue types.Money) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.entryFor(security, currency)
	entry.askValue = &askValue
	p.recomputeUnrealized(security)
}

// UpdateBid records a fresh bid valuation for a security and recomputes its
// unrealized P&L.
func (p *Portfolio) UpdateBid(security types.Security, currency types.CurrencyId, bidValue types.Money) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.entryFor(security, currency)
	entry.bidValue = &bidValue
	p.recomputeUnrealized(security)
}

// UpdateValuation records both sides of a valuation at once.
func (p *Portfolio) UpdateValuation(security types.Security, currency types.CurrencyId, askValue, bidValue types.Money) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.entryFor(security, currency)
	entry.askValue = &askValue
	entry.bidValue = &bidValue
	p.recomputeUnrealized(security)
}

// GetRealizedProfitAndLoss sums realized P&L (gross less fees) over every
// security held in the given currency.
func (p *Portfolio) GetRealizedProfitAndLoss(currency types.CurrencyId) types.Money {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := types.Zero
	for security, entry := range p.entries {
		if entry.currency != currency {
			continue
		}
		total = total.Add(p.bookkeeper.Inventory(security, currency).Realized())
	}
	return total
}

// GetUnrealizedProfitAndLoss returns the unrealized P&L aggregate for a
// currency.
func (p *Portfolio) GetUnrealizedProfitAndLoss(currency types.CurrencyId) types.Money {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unrealizedByCurrency[currency]
}

// GetTotalProfitAndLoss returns realized plus unrealized P&L for a
// currency.
func (p *Portfolio) GetTotalProfitAndLoss(currency types.CurrencyId) types.Money {
	return p.GetRealizedProfitAndLoss(currency).Add(p.GetUnrealizedProfitAndLoss(currency))
}

// ForEachPortfolioEntry invokes fn for every security currently tracked,
// in no particular order.
func (p *Portfolio) ForEachPortfolioEntry(fn func(PortfolioEntry)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for security, entry := range p.entries {
		valuation := SecurityValuation{Currency: entry.currency, AskValue: entry.askValue, BidValue: entry.bidValue}
		fn(PortfolioEntry{
			Security:   security,
			Inventory:  p.bookkeeper.Inventory(security, entry.currency),
			Valuation:  valuation,
			Unrealized: entry.unrealized,
		})
	}
}
