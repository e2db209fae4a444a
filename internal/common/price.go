// Package common holds the vocabulary shared by the book, router, and
// market maker packages: price/quantity representations, the order and
// trade types, and the venue/fee/metrics types the router scores against.
// It has no dependencies on any of those packages, so any layer can import
// it without risking an import cycle.
package common

import "github.com/shopspring/decimal"

// PriceTick is the scaled-integer form of a price: round(price * 100).
// All book ordering, map keys, and equality checks use PriceTick instead
// of decimal.Decimal directly, so two orders at "the same" price always
// compare equal regardless of how their decimal value was constructed.
type PriceTick int64

const tickScale = 100

// ToTicks converts a decimal price to its scaled-integer tick.
func ToTicks(price decimal.Decimal) PriceTick {
	scaled := price.Mul(decimal.NewFromInt(tickScale))
	return PriceTick(scaled.Round(0).IntPart())
}

// ToDecimal converts a tick back to its decimal display value.
func (t PriceTick) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(int64(t)).Div(decimal.NewFromInt(tickScale))
}

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}
