package risk

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mktplane/tradecore/accounting"
	"github.com/mktplane/tradecore/types"
)

// OrderExecutionClient is the subset of order-execution behavior the
// tracker needs to cancel resting orders and flatten positions.
type OrderExecutionClient interface {
	Submit(fields types.OrderFields) (types.OrderId, error)
	Cancel(id types.OrderId) error
}

// RiskTransitionTracker drives one account's seven-state risk machine
// (S0-S6): idle while ACTIVE, canceling openings then everything once
// RiskState moves to CLOSE_ORDERS or DISABLED, and flattening every open
// position with opposite-side market orders once every order has drained.
type RiskTransitionTracker struct {
	account    string
	client     OrderExecutionClient
	markets    MarketDatabase
	mu         sync.Mutex
	book       *accounting.PositionOrderBook
	riskState  RiskState
	liveOrders map[types.OrderId]bool
	state      int
}

// NewRiskTransitionTracker constructs a tracker starting in S0, idle-active.
func NewRiskTransitionTracker(account string, client OrderExecutionClient, markets MarketDatabase) *RiskTransitionTracker {
	return &RiskTransitionTracker{
		account:    account,
		client:     client,
		markets:    markets,
		book:       accounting.NewPositionOrderBook(),
		liveOrders: make(map[types.OrderId]bool),
	}
}

// Add registers an order in the underlying PositionOrderBook.
func (t *RiskTransitionTracker) Add(id types.OrderId, fields types.OrderFields) {
	t.book.Add(id, fields)
}

// Update reacts to a new RiskState push, re-evaluating the current state's
// transition conditions.
func (t *RiskTransitionTracker) Update(state RiskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.riskState = state
	switch t.state {
	case 0:
		t.s0()
	case 2:
		t.s2()
	case 4:
		t.s4()
	case 6:
		t.s6()
	}
}

// UpdateReport feeds an ExecutionReport into the underlying
// PositionOrderBook and, while draining (S4), re-checks whether every live
// order has terminated.
func (t *RiskTransitionTracker) UpdateReport(report types.ExecutionReport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.book.Update(report)
	if report.Status.IsTerminal() {
		delete(t.liveOrders, report.Id)
	}
	if t.state == 4 {
		t.s4()
	}
}

// State returns the tracker's current state number (0-6), exposed for a
// risk-state gauge.
func (t *RiskTransitionTracker) State() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *RiskTransitionTracker) c0() bool { return t.riskState.Type == StateCloseOrders }
func (t *RiskTransitionTracker) c1() bool { return t.riskState.Type == StateActive }
func (t *RiskTransitionTracker) c2() bool { return t.riskState.Type == StateDisabled }
func (t *RiskTransitionTracker) c3() bool { return len(t.liveOrders) == 0 }

func (t *RiskTransitionTracker) s0() {
	t.state = 0
	if t.c0() {
		t.s1()
	}
}

func (t *RiskTransitionTracker) s1() {
	t.state = 1
	for _, id := range t.book.GetOpeningOrders() {
		if err := t.client.Cancel(id); err != nil {
			log.Error().Err(err).Str("account", t.account).Str("order", string(id)).Msg("risk: failed to cancel opening order")
		}
	}
	t.s2()
}

func (t *RiskTransitionTracker) s2() {
	t.state = 2
	if t.c1() {
		t.s0()
	} else if t.c2() {
		t.s3()
	}
}

func (t *RiskTransitionTracker) s3() {
	t.state = 3
	live := t.book.GetLiveOrders()
	t.liveOrders = make(map[types.OrderId]bool, len(live))
	for _, id := range live {
		t.liveOrders[id] = true
		if err := t.client.Cancel(id); err != nil {
			log.Error().Err(err).Str("account", t.account).Str("order", string(id)).Msg("risk: failed to cancel order")
		}
	}
	t.s4()
}

func (t *RiskTransitionTracker) s4() {
	t.state = 4
	if t.c1() {
		t.s0()
	} else if t.c3() {
		t.s5()
	}
}

func (t *RiskTransitionTracker) s5() {
	t.state = 5
	for _, position := range t.book.GetPositions() {
		info := t.markets[position.Security.Market]
		side := types.SideFromQuantity(position.Quantity).Opposite()
		quantity := position.Quantity
		if quantity < 0 {
			quantity = -quantity
		}
		fields := types.BuildMarketOrder(t.account, position.Security, info.Currency, side, info.PreferredDestination, quantity)
		if _, err := t.client.Submit(fields); err != nil {
			log.Error().Err(err).Str("account", t.account).Str("security", position.Security.String()).Msg("risk: failed to submit flattening order")
		}
	}
	t.s6()
}

func (t *RiskTransitionTracker) s6() {
	t.state = 6
	if t.c1() {
		t.s0()
	}
}
