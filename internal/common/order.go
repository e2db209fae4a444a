package common

import "github.com/shopspring/decimal"

// Order is a resting or aggressing limit order. Identity is OrderID, which
// must be unique across the lifetime of the OrderBook it is submitted to.
type Order struct {
	OrderID  uint32
	Price    decimal.Decimal
	Quantity uint32
	Side     Side
}

// PriceTick returns the order's price as a scaled-integer tick.
func (o Order) PriceTick() PriceTick {
	return ToTicks(o.Price)
}
