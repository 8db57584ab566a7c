package types

import "time"

// Quote is a single (price, size, side) tuple.
type Quote struct {
	Price Money
	Size  Quantity
	Side  Side
}

// BboQuote is the best bid and offer for a security at a point in time.
type BboQuote struct {
	Ask       Quote
	Bid       Quote
	Timestamp time.Time
}

// MarketQuote is a per-market-center top-of-book quote.
type MarketQuote struct {
	Market    MarketCode
	Ask       Quote
	Bid       Quote
	Timestamp time.Time
}

// BookQuote is a level-2 entry attributed to an MPID at a specific price on
// a specific side.
type BookQuote struct {
	MPID            string
	IsPrimaryMPID   bool
	Market          MarketCode
	Quote           Quote
	Timestamp       time.Time
}

// TimeAndSale is a print of an executed trade.
type TimeAndSale struct {
	Timestamp    time.Time
	Price        Money
	Size         Quantity
	Condition    string
	MarketCenter MarketCode
}

// OrderImbalance is an exchange-announced unmatched order quantity at
// open/close auctions.
type OrderImbalance struct {
	Security       Security
	Side           Side
	Size           Quantity
	ReferencePrice Money
	Timestamp      time.Time
}

// SecurityTechnicals tracks a security's day-level aggregates.
type SecurityTechnicals struct {
	Volume     Quantity
	High       Money
	Low        Money
	Open       Money
	PriorClose Money
}

// SecuritySnapshot is the merged, sequenced view of a security's market
// data used to answer LoadSnapshot and to seed a subscriber's
// initialize/commit seam.
type SecuritySnapshot struct {
	Security     Security
	BboQuote     BboQuote
	TimeAndSale  TimeAndSale
	MarketQuotes map[MarketCode]MarketQuote
	AskBook      []BookQuote
	BidBook      []BookQuote
}
