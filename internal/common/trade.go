package common

import "github.com/shopspring/decimal"

// Trade records one match produced by an OrderBook.Add call. The buyer and
// seller roles are carried as dedicated fields rather than inferred from
// OrderID ordering — relying on id ordering to recover aggressor/passive
// roles was a known fragility in the matching logic this was adapted from.
type Trade struct {
	TradeID     uint32
	Price       decimal.Decimal
	Quantity    uint32
	BuyOrderID  uint32
	SellOrderID uint32
}
