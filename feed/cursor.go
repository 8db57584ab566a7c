// Package feed parses the fixed-record-length Chia-style exchange feed into
// typed domain events and drives a read loop that republishes them through
// a MarketDataFeedClient.
package feed

import (
	"github.com/mktplane/tradecore/types"
)

// cursor walks a fixed-record byte buffer, consuming fields left to right.
type cursor struct {
	data []byte
	pos  int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// parseChar consumes exactly one byte.
func (c *cursor) parseChar() byte {
	v := c.data[c.pos]
	c.pos++
	return v
}

// parseNumeric consumes length bytes, skipping leading spaces, and
// interprets the remaining decimal digits base-10 with no sign.
func (c *cursor) parseNumeric(length int) int64 {
	remaining := length
	for remaining > 0 && c.data[c.pos] == ' ' {
		c.pos++
		remaining--
	}
	var value int64
	for remaining > 0 {
		value = value*10 + int64(c.data[c.pos]-'0')
		c.pos++
		remaining--
	}
	return value
}

// parseAlphanumeric consumes exactly length bytes, trimming at the first
// space encountered.
func (c *cursor) parseAlphanumeric(length int) string {
	var value []byte
	for i := 0; i < length; i++ {
		if c.data[c.pos+i] == ' ' {
			break
		}
		value = append(value, c.data[c.pos+i])
	}
	c.pos += length
	return string(value)
}

// parseSide maps 'B' to BID, 'S' to ASK, anything else to NONE.
func (c *cursor) parseSide() types.Side {
	switch c.parseChar() {
	case 'B':
		return types.SideBid
	case 'S':
		return types.SideAsk
	default:
		return types.SideNone
	}
}

// parsePrice consumes the short form (10 bytes, 4 decimal places) or long
// form (19 bytes, 7 decimal places) price field and rescales it to
// types.DecimalPlaces.
func (c *cursor) parsePrice(isLongForm bool) types.Money {
	length := 10
	decimalPlaces := 4
	if isLongForm {
		length = 19
		decimalPlaces = 7
	}
	remaining := length
	for remaining > 0 && c.data[c.pos] == ' ' {
		c.pos++
		remaining--
	}
	var value int64
	for remaining > 0 {
		value = value*10 + int64(c.data[c.pos]-'0')
		c.pos++
		remaining--
	}
	exponent := types.DecimalPlaces - decimalPlaces
	multiplier := int64(1)
	for i := 0; i < exponent; i++ {
		multiplier *= 10
	}
	price := types.MoneyFromQuantity(value * multiplier)
	for i := 0; i > exponent; i-- {
		price = price.DivQuantity(10)
	}
	return price
}
