package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntitlementsForUnionsMatchingGroups(t *testing.T) {
	key := EntitlementKey{Market: "NSDQ", SourceMarket: "ARCA"}
	db := EntitlementDatabase{Entries: []EntitlementEntry{
		{
			GroupName: "traders",
			Applicability: map[EntitlementKey][]MarketDataType{
				key: {MarketDataTypeBookQuote},
			},
		},
		{
			GroupName: "managers",
			Applicability: map[EntitlementKey][]MarketDataType{
				key: {MarketDataTypeTimeAndSale},
			},
		},
	}}

	set := db.EntitlementsFor([]string{"traders"})
	assert.True(t, set.HasEntitlement(key, MarketDataTypeBookQuote))
	assert.False(t, set.HasEntitlement(key, MarketDataTypeTimeAndSale))

	both := db.EntitlementsFor([]string{"traders", "managers"})
	assert.True(t, both.HasEntitlement(key, MarketDataTypeBookQuote))
	assert.True(t, both.HasEntitlement(key, MarketDataTypeTimeAndSale))
}

func TestEntitlementsForNoMatchingGroup(t *testing.T) {
	key := EntitlementKey{Market: "NSDQ", SourceMarket: "ARCA"}
	db := EntitlementDatabase{Entries: []EntitlementEntry{
		{GroupName: "traders", Applicability: map[EntitlementKey][]MarketDataType{key: {MarketDataTypeBookQuote}}},
	}}

	set := db.EntitlementsFor([]string{"guests"})
	assert.False(t, set.HasEntitlement(key, MarketDataTypeBookQuote))
}

func TestEntitlementSetNilIsUnentitled(t *testing.T) {
	var set *EntitlementSet
	assert.False(t, set.HasEntitlement(EntitlementKey{Market: "NSDQ"}, MarketDataTypeBookQuote))
}
