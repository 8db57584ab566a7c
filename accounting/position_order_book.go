package accounting

import (
	"sort"
	"sync"

	"github.com/mktplane/tradecore/types"
)

// PositionEntry is a single security's signed position.
type PositionEntry struct {
	Security types.Security
	Quantity types.Quantity
}

type positionOrderEntry struct {
	orderId           types.OrderId
	fields            types.OrderFields
	remainingQuantity types.Quantity
	sequenceNumber    int
}

type positionSecurityEntry struct {
	asks            []positionOrderEntry
	bids            []positionOrderEntry
	position        types.Quantity
	askOpenQuantity types.Quantity
	bidOpenQuantity types.Quantity
}

// PositionOrderBook classifies each live order as opening or closing
// against current inventory, tracks positions per security and enumerates
// live/opening orders. It is single-writer: the order-execution session
// must serialize Add/Update externally.
type PositionOrderBook struct {
	mu              sync.Mutex
	securityEntries map[types.Security]*positionSecurityEntry
	orderSecurity   map[types.OrderId]types.Security
	nextSequence    int
}

// NewPositionOrderBook constructs an empty PositionOrderBook.
func NewPositionOrderBook() *PositionOrderBook {
	return &PositionOrderBook{
		securityEntries: make(map[types.Security]*positionSecurityEntry),
		orderSecurity:   make(map[types.OrderId]types.Security),
	}
}

func sideList(entry *positionSecurityEntry, side types.Side) *[]positionOrderEntry {
	if side == types.SideAsk {
		return &entry.asks
	}
	return &entry.bids
}

func sideOpenQuantity(entry *positionSecurityEntry, side types.Side) *types.Quantity {
	if side == types.SideAsk {
		return &entry.askOpenQuantity
	}
	return &entry.bidOpenQuantity
}

// orderFieldsLess orders by (price, destination, quantity, sequence), a
// stable total order sufficient to keep insertion order deterministic; the
// source compares full OrderFields tuples then sequence number as tiebreak.
func orderFieldsLess(a positionOrderEntry, b positionOrderEntry) bool {
	if !a.fields.Price.Equal(b.fields.Price) {
		return a.fields.Price.LessThan(b.fields.Price)
	}
	if a.fields.Destination != b.fields.Destination {
		return a.fields.Destination < b.fields.Destination
	}
	if a.fields.Quantity != b.fields.Quantity {
		return a.fields.Quantity < b.fields.Quantity
	}
	return a.sequenceNumber < b.sequenceNumber
}

// Add records an order's fields and inserts it into its security's
// side-sorted list, incrementing that side's open quantity by the order's
// full quantity.
func (b *PositionOrderBook) Add(id types.OrderId, fields types.OrderFields) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderSecurity[id] = fields.Security
	entry, ok := b.securityEntries[fields.Security]
	if !ok {
		entry = &positionSecurityEntry{}
		b.securityEntries[fields.Security] = entry
	}
	openQuantity := sideOpenQuantity(entry, fields.Side)
	*openQuantity += fields.Quantity

	orderEntry := positionOrderEntry{orderId: id, fields: fields, remainingQuantity: fields.Quantity, sequenceNumber: b.nextSequence}
	b.nextSequence++
	list := sideList(entry, fields.Side)
	idx := sort.Search(len(*list), func(i int) bool {
		return !orderFieldsLess((*list)[i], orderEntry)
	})
	*list = append(*list, positionOrderEntry{})
	copy((*list)[idx+1:], (*list)[idx:])
	(*list)[idx] = orderEntry
}

// Update applies an ExecutionReport: adjusts position, decrements open
// quantity and removes the entry once it is fully filled or terminal.
func (b *PositionOrderBook) Update(report types.ExecutionReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if report.LastQuantity == 0 && !report.Status.IsTerminal() {
		return
	}
	security, ok := b.orderSecurity[report.Id]
	if !ok {
		return
	}
	entry, ok := b.securityEntries[security]
	if !ok {
		return
	}
	var side types.Side
	var listIdx = -1
	for _, candidateSide := range [2]types.Side{types.SideAsk, types.SideBid} {
		list := sideList(entry, candidateSide)
		for i := range *list {
			if (*list)[i].orderId == report.Id {
				side = candidateSide
				listIdx = i
				break
			}
		}
		if listIdx >= 0 {
			break
		}
	}
	if listIdx < 0 {
		return
	}

	entry.position += types.Quantity(side.Direction()) * report.LastQuantity
	openQuantity := sideOpenQuantity(entry, side)
	*openQuantity -= report.LastQuantity

	list := sideList(entry, side)
	(*list)[listIdx].remainingQuantity -= report.LastQuantity
	if (*list)[listIdx].remainingQuantity == 0 || report.Status.IsTerminal() {
		*openQuantity -= (*list)[listIdx].remainingQuantity
		delete(b.orderSecurity, report.Id)
		*list = append((*list)[:listIdx], (*list)[listIdx+1:]...)
	}
}

// TestOpeningOrderSubmission reports whether submitting an order with the
// given fields would result in an opening order (increases |position|) as
// opposed to a closing one.
func (b *PositionOrderBook) TestOpeningOrderSubmission(fields types.OrderFields) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.securityEntries[fields.Security]
	if !ok {
		return true
	}
	if entry.position == 0 {
		return true
	}
	if types.SideFromQuantity(entry.position) == fields.Side {
		return true
	}
	openQuantity := *sideOpenQuantity(entry, fields.Side)
	abs := entry.position
	if abs < 0 {
		abs = -abs
	}
	return openQuantity+fields.Quantity > abs
}

// GetPositions returns every security currently carrying a non-zero
// position.
func (b *PositionOrderBook) GetPositions() []PositionEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	var positions []PositionEntry
	for security, entry := range b.securityEntries {
		if entry.position != 0 {
			positions = append(positions, PositionEntry{Security: security, Quantity: entry.position})
		}
	}
	return positions
}

// GetLiveOrders returns every order still resting in this book.
func (b *PositionOrderBook) GetLiveOrders() []types.OrderId {
	b.mu.Lock()
	defer b.mu.Unlock()
	var orders []types.OrderId
	for _, entry := range b.securityEntries {
		for _, e := range entry.asks {
			orders = append(orders, e.orderId)
		}
		for _, e := range entry.bids {
			orders = append(orders, e.orderId)
		}
	}
	return orders
}

// GetOpeningOrders returns the subset of live orders that are opening: all
// orders when flat, same-side orders plus the tail of opposite-side orders
// beyond |position| otherwise.
func (b *PositionOrderBook) GetOpeningOrders() []types.OrderId {
	b.mu.Lock()
	defer b.mu.Unlock()
	var orders []types.OrderId
	for _, entry := range b.securityEntries {
		switch {
		case entry.position == 0:
			for _, e := range entry.asks {
				orders = append(orders, e.orderId)
			}
			for _, e := range entry.bids {
				orders = append(orders, e.orderId)
			}
		case entry.position > 0:
			remaining := entry.position
			for _, e := range entry.asks {
				if remaining <= 0 {
					orders = append(orders, e.orderId)
				} else if remaining >= e.remainingQuantity {
					remaining -= e.remainingQuantity
				} else {
					remaining -= e.remainingQuantity
					orders = append(orders, e.orderId)
				}
			}
			for _, e := range entry.bids {
				orders = append(orders, e.orderId)
			}
		default:
			for _, e := range entry.asks {
				orders = append(orders, e.orderId)
			}
			remaining := -entry.position
			for _, e := range entry.bids {
				if remaining <= 0 {
					orders = append(orders, e.orderId)
				} else if remaining >= e.remainingQuantity {
					remaining -= e.remainingQuantity
				} else {
					remaining -= e.remainingQuantity
					orders = append(orders, e.orderId)
				}
			}
		}
	}
	return orders
}
