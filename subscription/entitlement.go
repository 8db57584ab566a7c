// Package subscription implements the market-data subscription multiplexer:
// entitlement gating, indexed per-security/per-market subscription tables
// with an initialize/commit seam, and a websocket-framed session transport.
package subscription

import "github.com/mktplane/tradecore/types"

// MarketDataType enumerates the kinds of data a subscription or entitlement
// grant can cover.
type MarketDataType int

const (
	MarketDataTypeBboQuote MarketDataType = iota
	MarketDataTypeMarketQuote
	MarketDataTypeBookQuote
	MarketDataTypeTimeAndSale
	MarketDataTypeOrderImbalance
)

// EntitlementKey identifies a data feed by the security's primary market and
// the market the data actually originated from. Book quotes from a
// secondary market require a distinct entitlement from the primary listing
// itself.
type EntitlementKey struct {
	Market       types.MarketCode
	SourceMarket types.MarketCode
}

// EntitlementEntry grants one named group access to a set of
// (EntitlementKey, MarketDataType) pairs.
type EntitlementEntry struct {
	GroupName     string
	Applicability map[EntitlementKey][]MarketDataType
}

// EntitlementDatabase is the full table of entitlement groups and what each
// grants.
type EntitlementDatabase struct {
	Entries []EntitlementEntry
}

// EntitlementsFor unions the applicability of every entry whose group name
// appears in parentGroups, mirroring the registry servlet's accept-time
// lookup of an account's parent directory entries.
func (db EntitlementDatabase) EntitlementsFor(parentGroups []string) *EntitlementSet {
	set := NewEntitlementSet()
	parents := make(map[string]bool, len(parentGroups))
	for _, p := range parentGroups {
		parents[p] = true
	}
	for _, entry := range db.Entries {
		if !parents[entry.GroupName] {
			continue
		}
		for key, dataTypes := range entry.Applicability {
			for _, t := range dataTypes {
				set.Grant(key, t)
			}
		}
	}
	return set
}

// EntitlementSet is the union of entitlements granted to one session.
type EntitlementSet struct {
	granted map[EntitlementKey]map[MarketDataType]bool
}

// NewEntitlementSet constructs an empty set.
func NewEntitlementSet() *EntitlementSet {
	return &EntitlementSet{granted: make(map[EntitlementKey]map[MarketDataType]bool)}
}

// Grant adds one (key, type) entitlement.
func (s *EntitlementSet) Grant(key EntitlementKey, dataType MarketDataType) {
	byType, ok := s.granted[key]
	if !ok {
		byType = make(map[MarketDataType]bool)
		s.granted[key] = byType
	}
	byType[dataType] = true
}

// HasEntitlement reports whether this set was granted access to dataType
// for key.
func (s *EntitlementSet) HasEntitlement(key EntitlementKey, dataType MarketDataType) bool {
	if s == nil {
		return false
	}
	return s.granted[key][dataType]
}
