// Package accounting implements position tracking, realized/unrealized P&L
// and buying-power reservation: PositionOrderBook, Portfolio/Bookkeeper and
// BuyingPowerTracker.
package accounting

import (
	"sync"

	"github.com/mktplane/tradecore/types"
)

type buyingPowerOrderEntry struct {
	id                types.OrderId
	fields            types.OrderFields
	expectedPrice     types.Money
	remainingQuantity types.Quantity
}

type buyingPowerEntry struct {
	asks        []buyingPowerOrderEntry
	bids        []buyingPowerOrderEntry
	expenditure types.Money
	quantity    types.Quantity
}

// BuyingPowerTracker reserves expected expenditure per pending order and
// releases it on execution, one instance per account. It is single-writer:
// callers must serialize Submit/Update externally (assumed by the
// order-execution session, per the source's locking discipline).
type BuyingPowerTracker struct {
	mu                sync.Mutex
	idToFields        map[types.OrderId]types.OrderFields
	entriesBySecurity map[types.Security]*buyingPowerEntry
	buyingPower       map[types.CurrencyId]types.Money
}

// NewBuyingPowerTracker constructs an empty tracker.
func NewBuyingPowerTracker() *BuyingPowerTracker {
	return &BuyingPowerTracker{
		idToFields:        make(map[types.OrderId]types.OrderFields),
		entriesBySecurity: make(map[types.Security]*buyingPowerEntry),
		buyingPower:       make(map[types.CurrencyId]types.Money),
	}
}

// HasOrder reports whether an order has previously been accounted for.
func (t *BuyingPowerTracker) HasOrder(id types.OrderId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.idToFields[id]
	return ok
}

// GetBuyingPower returns the buying power used in a currency.
func (t *BuyingPowerTracker) GetBuyingPower(currency types.CurrencyId) types.Money {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buyingPower[currency]
}

func entrySideList(entry *buyingPowerEntry, side types.Side) *[]buyingPowerOrderEntry {
	if side == types.SideAsk {
		return &entry.asks
	}
	return &entry.bids
}

// Submit tracks a not-yet-accepted order submission and returns the
// updated buying power for the order's currency.
func (t *BuyingPowerTracker) Submit(id types.OrderId, fields types.OrderFields, expectedPrice types.Money) types.Money {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entriesBySecurity[fields.Security]
	if !ok {
		entry = &buyingPowerEntry{}
		t.entriesBySecurity[fields.Security] = entry
	}
	buyingPower := t.buyingPower[fields.Currency]
	buyingPower = buyingPower.Sub(computeEntryBuyingPower(entry))

	list := entrySideList(entry, fields.Side)
	newEntry := buyingPowerOrderEntry{id: id, fields: fields, expectedPrice: expectedPrice, remainingQuantity: fields.Quantity}
	idx := buyingPowerInsertionIndex(*list, fields.Side, expectedPrice)
	if idx < len(*list) && (*list)[idx].remainingQuantity == 0 {
		(*list)[idx] = newEntry
	} else {
		*list = append(*list, buyingPowerOrderEntry{})
		copy((*list)[idx+1:], (*list)[idx:])
		(*list)[idx] = newEntry
	}

	buyingPower = buyingPower.Add(computeEntryBuyingPower(entry))
	t.buyingPower[fields.Currency] = buyingPower
	t.idToFields[id] = fields
	return buyingPower
}

// buyingPowerInsertionIndex finds where a new order sorts into a side's
// ordered-by-expected-price list: ascending for asks, descending for bids.
func buyingPowerInsertionIndex(list []buyingPowerOrderEntry, side types.Side, price types.Money) int {
	for i, entry := range list {
		if side == types.SideAsk && entry.expectedPrice.GreaterThan(price) {
			return i
		}
		if side == types.SideBid && entry.expectedPrice.LessThan(price) {
			return i
		}
	}
	return len(list)
}

// statusChangesSize reports whether a status represents a size change that
// should be reflected in the tracker (excludes PENDING_NEW, SUSPENDED,
// PENDING_CANCEL, NEW, CANCEL_REJECT).
func statusChangesSize(status types.ExecutionStatus) bool {
	switch status {
	case types.StatusPendingNew, types.StatusSuspended, types.StatusPendingCancel, types.StatusNew, types.StatusCancelReject:
		return false
	default:
		return true
	}
}

// Update applies an ExecutionReport, closing the position offset first (at
// average cost) before opening new inventory at last price.
func (t *BuyingPowerTracker) Update(report types.ExecutionReport) {
	if !statusChangesSize(report.Status) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fields, ok := t.idToFields[report.Id]
	if !ok {
		return
	}
	entry := t.entriesBySecurity[fields.Security]
	buyingPower := t.buyingPower[fields.Currency]
	buyingPower = buyingPower.Sub(computeEntryBuyingPower(entry))

	list := entrySideList(entry, fields.Side)
	for i := range *list {
		if (*list)[i].id == report.Id {
			if report.Status.IsTerminal() {
				(*list)[i].remainingQuantity = 0
			} else {
				(*list)[i].remainingQuantity -= report.LastQuantity
			}
			break
		}
	}

	lastQuantity := report.LastQuantity
	if (fields.Side == types.SideBid && entry.quantity < 0) || (fields.Side == types.SideAsk && entry.quantity > 0) {
		absQuantity := entry.quantity
		if absQuantity < 0 {
			absQuantity = -absQuantity
		}
		delta := absQuantity
		if lastQuantity < delta {
			delta = lastQuantity
		}
		if entry.quantity != 0 {
			avgCost := entry.expenditure.DivQuantity(entry.quantity)
			offsetDirection := fields.Side.Opposite().Direction()
			entry.expenditure = entry.expenditure.Sub(avgCost.MulQuantity(types.Quantity(offsetDirection) * delta))
		}
		entry.quantity += types.Quantity(fields.Side.Direction()) * delta
		lastQuantity -= delta
	}
	entry.quantity += types.Quantity(fields.Side.Direction()) * lastQuantity
	entry.expenditure = entry.expenditure.Add(report.LastPrice.MulQuantity(types.Quantity(fields.Side.Direction()) * lastQuantity))

	buyingPower = buyingPower.Add(computeEntryBuyingPower(entry))
	t.buyingPower[fields.Currency] = buyingPower
}

// computeListBuyingPower sums remaining*price over an ordered order list,
// skipping quantityOffset units off the front (used to offset expenditure
// already covered by the held position).
func computeListBuyingPower(list []buyingPowerOrderEntry, quantityOffset types.Quantity) types.Money {
	total := types.Zero
	for _, entry := range list {
		if quantityOffset == 0 {
			total = total.Add(entry.expectedPrice.MulQuantity(entry.remainingQuantity))
		} else if entry.remainingQuantity < quantityOffset {
			quantityOffset -= entry.remainingQuantity
		} else {
			total = total.Add(entry.expectedPrice.MulQuantity(entry.remainingQuantity - quantityOffset))
			quantityOffset = 0
		}
	}
	return total
}

// computeEntryBuyingPower combines a security's ask and bid reservations,
// offsetting by the held position on the side that reduces it, and returns
// the greater of the two possible worst-case drawdowns.
func computeEntryBuyingPower(entry *buyingPowerEntry) types.Money {
	if entry == nil {
		return types.Zero
	}
	var askPower, bidPower types.Money
	if entry.quantity >= 0 {
		askPower = computeListBuyingPower(entry.asks, entry.quantity)
		bidPower = computeListBuyingPower(entry.bids, 0).Add(entry.expenditure)
	} else {
		askPower = computeListBuyingPower(entry.asks, 0).Sub(entry.expenditure)
		bidPower = computeListBuyingPower(entry.bids, -entry.quantity)
	}
	return types.MaxOf(askPower, bidPower)
}
