package accounting

import (
	"sync"

	"github.com/mktplane/tradecore/types"
)

// inventoryKey identifies one bookkeeper bucket.
type inventoryKey struct {
	security types.Security
	currency types.CurrencyId
}

// Inventory tracks a signed position and its cost basis for one
// (security, currency) pair, plus realized gross P&L, fees and traded
// volume.
type Inventory struct {
	Quantity           types.Quantity
	CostBasis          types.Money
	GrossProfitAndLoss types.Money
	Fees               types.Money
	Volume             types.Quantity
}

// Realized returns the net realized P&L: gross profit/loss less fees.
func (i Inventory) Realized() types.Money {
	return i.GrossProfitAndLoss.Sub(i.Fees)
}

// Bookkeeper maintains per-(security, currency) Inventory and tracks
// realized P&L via average-cost accounting. RecordTransaction's
// zero-crossing split is derived directly from the bookkeeper-consistency
// invariant in the data model, since no reference implementation of this
// particular method was available to ground it on.
type Bookkeeper struct {
	mu        sync.Mutex
	inventory map[inventoryKey]*Inventory
}

// NewBookkeeper constructs an empty Bookkeeper.
func NewBookkeeper() *Bookkeeper {
	return &Bookkeeper{inventory: make(map[inventoryKey]*Inventory)}
}

// Inventory returns a copy of the current inventory for (security,
// currency), the zero value if none has been recorded.
func (bk *Bookkeeper) Inventory(security types.Security, currency types.CurrencyId) Inventory {
	bk.mu.Lock()
	defer bk.mu.Unlock()
	entry, ok := bk.inventory[inventoryKey{security, currency}]
	if !ok {
		return Inventory{}
	}
	return *entry
}

// RecordTransaction folds one fill of signed quantity q (direction(side) *
// last_quantity) at lastPrice into the (security, currency) inventory. The
// portion of q that closes existing opposite-sign inventory realizes P&L at
// (fill_price - average_cost); any remainder opens new inventory at the
// fill price. cost_basis always tracks the signed notional of the
// currently held lot.
func (bk *Bookkeeper) RecordTransaction(security types.Security, currency types.CurrencyId, q types.Quantity, lastPrice types.Money, fees types.Money) Inventory {
	bk.mu.Lock()
	defer bk.mu.Unlock()
	key := inventoryKey{security, currency}
	entry, ok := bk.inventory[key]
	if !ok {
		entry = &Inventory{}
		bk.inventory[key] = entry
	}

	closingQuantity := closingPortion(entry.Quantity, q)
	if closingQuantity != 0 {
		averageCost := entry.CostBasis.DivQuantity(entry.Quantity)
		entry.GrossProfitAndLoss = entry.GrossProfitAndLoss.Add(
			lastPrice.Sub(averageCost).MulQuantity(-closingQuantity))
		entry.CostBasis = entry.CostBasis.Sub(averageCost.MulQuantity(-closingQuantity))
	}
	openingQuantity := q - closingQuantity
	if openingQuantity != 0 {
		entry.CostBasis = entry.CostBasis.Add(lastPrice.MulQuantity(openingQuantity))
	}
	entry.Quantity += q
	entry.Fees = entry.Fees.Add(fees)
	volume := q
	if volume < 0 {
		volume = -volume
	}
	entry.Volume += volume
	return *entry
}

// closingPortion returns the portion of a fill of signed size q that closes
// existing inventory of the opposite sign, signed to match q, magnitude
// capped at min(|position|, |q|). Zero if the fill only opens or extends
// the position (same sign as q, or no existing position).
func closingPortion(position types.Quantity, q types.Quantity) types.Quantity {
	if position == 0 || q == 0 {
		return 0
	}
	if (position > 0) == (q > 0) {
		return 0
	}
	absPosition := position
	if absPosition < 0 {
		absPosition = -absPosition
	}
	absQ := q
	if absQ < 0 {
		absQ = -absQ
	}
	magnitude := absPosition
	if absQ < magnitude {
		magnitude = absQ
	}
	if q < 0 {
		return -magnitude
	}
	return magnitude
}
