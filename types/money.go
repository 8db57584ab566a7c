package types

import (
	"github.com/shopspring/decimal"
)

// DecimalPlaces is the fixed number of decimal places a Money value carries
// internally. Wire prices in the feed codec are scaled up or down to this
// many places on parse.
const DecimalPlaces = 6

// Quantity is a signed integral scalar: share counts, order sizes, position
// sizes.
type Quantity int64

// Money is a fixed-point scalar represented internally as
// Quantity * 10^-DecimalPlaces. It wraps decimal.Decimal so arithmetic never
// drifts across many accumulations the way float64 would.
type Money struct {
	value decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{value: decimal.Zero}

// MaxMoney is used as a sentinel "worst possible ask price" in ordered order
// lists and compliance rules (market orders have no real price).
var MaxMoney = Money{value: decimal.New(1, 18)}

// MoneyFromQuantity builds a Money value out of a raw scaled integer, i.e.
// the representation is q * 10^-DecimalPlaces.
func MoneyFromQuantity(q int64) Money {
	return Money{value: decimal.New(q, -DecimalPlaces)}
}

// MoneyFromFloat builds a Money value from a float, rounding to
// DecimalPlaces.
func MoneyFromFloat(f float64) Money {
	return Money{value: decimal.NewFromFloat(f).Round(DecimalPlaces)}
}

func (m Money) Add(other Money) Money {
	return Money{value: m.value.Add(other.value)}
}

func (m Money) Sub(other Money) Money {
	return Money{value: m.value.Sub(other.value)}
}

// MulQuantity multiplies the money value by a signed Quantity, as used to
// turn a per-unit price into a notional.
func (m Money) MulQuantity(q Quantity) Money {
	return Money{value: m.value.Mul(decimal.NewFromInt(int64(q)))}
}

// DivQuantity divides the money value by an integral quantity, used to
// compute an average cost per unit from a total expenditure.
func (m Money) DivQuantity(q Quantity) Money {
	return Money{value: m.value.Div(decimal.NewFromInt(int64(q)))}
}

func (m Money) Neg() Money {
	return Money{value: m.value.Neg()}
}

func (m Money) Cmp(other Money) int {
	return m.value.Cmp(other.value)
}

func (m Money) LessThan(other Money) bool    { return m.Cmp(other) < 0 }
func (m Money) GreaterThan(other Money) bool { return m.Cmp(other) > 0 }
func (m Money) Equal(other Money) bool       { return m.Cmp(other) == 0 }
func (m Money) IsZero() bool                 { return m.value.IsZero() }

func (m Money) String() string {
	return m.value.StringFixed(DecimalPlaces)
}

// MaxOf returns the greater of two Money values.
func MaxOf(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MinOf returns the lesser of two Money values.
func MinOf(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}
