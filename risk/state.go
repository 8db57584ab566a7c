// Package risk implements the per-account risk transition state machine:
// a seven-state tracker that reacts to server-pushed RiskState changes and
// execution reports by canceling openings, canceling everything, then
// flattening positions, replacing the teacher's Polymarket-specific
// gate/circuit-breaker/sizing logic with this domain's state machine.
package risk

import (
	"github.com/mktplane/tradecore/types"
)

// StateType is the server-side risk authorization for an account.
type StateType int

const (
	StateActive StateType = iota
	StateCloseOrders
	StateDisabled
)

// RiskState is one account's current risk authorization.
type RiskState struct {
	Type StateType
}

// MarketInfo describes the settlement currency and preferred routing
// destination used to flatten a position in that market.
type MarketInfo struct {
	Currency             types.CurrencyId
	PreferredDestination types.Destination
}

// MarketDatabase resolves per-market settlement/routing info.
type MarketDatabase map[types.MarketCode]MarketInfo
