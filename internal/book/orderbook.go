// Package book implements a per-venue limit order book: price levels keyed
// by a scaled-integer tick, FIFO time priority within a level, and a
// price-time priority matching algorithm run inline on every Add.
//
// Adapted from the teacher's internal/engine/orderbook.go (tidwall/btree
// price levels, in-place level sweep) generalized to the trade/order shape
// this module needs: explicit buyer/seller roles on every Trade, and a
// resident order-id sequence kept separate from the order map so a partial
// fill never disturbs FIFO position.
package book

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"meridian/internal/common"
)

type levels = btree.BTreeG[*priceLevel]

// OrderBook is a single-venue limit order book. It is not safe for
// concurrent use; callers needing multi-producer access must serialize
// calls externally (see internal/server for the TCP-session serializer).
type OrderBook struct {
	bids *levels // descending by tick: best bid first
	asks *levels // ascending by tick: best ask first

	orders map[uint32]*common.Order

	nextTradeID uint32
}

// New creates an empty order book.
func New() *OrderBook {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.tick > b.tick // descending: highest bid first
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.tick < b.tick // ascending: lowest ask first
	})
	return &OrderBook{
		bids:        bids,
		asks:        asks,
		orders:      make(map[uint32]*common.Order),
		nextTradeID: 1,
	}
}

// Add submits a new order. Preconditions: orderID not resident, quantity >
// 0, price > 0; violations are rejected as a no-op (nil trades, an error,
// nothing mutated). Any crossing quantity is matched away in price-time
// priority before the residual (if any) rests on the book.
func (ob *OrderBook) Add(orderID uint32, price decimal.Decimal, quantity uint32, side common.Side) ([]common.Trade, error) {
	if quantity == 0 {
		return nil, common.ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return nil, common.ErrInvalidPrice
	}
	if _, exists := ob.orders[orderID]; exists {
		return nil, common.ErrDuplicateOrder
	}

	tick := common.ToTicks(price)
	remaining := quantity
	var trades []common.Trade

	if side == common.Buy {
		trades, remaining = ob.match(orderID, tick, remaining, side, ob.asks)
	} else {
		trades, remaining = ob.match(orderID, tick, remaining, side, ob.bids)
	}

	if remaining > 0 {
		ob.rest(orderID, tick, remaining, side)
	}

	log.Debug().
		Uint32("order_id", orderID).
		Str("side", side.String()).
		Uint32("quantity", quantity).
		Int("trades", len(trades)).
		Uint32("residual", remaining).
		Msg("order added")

	return trades, nil
}

// match sweeps the opposite side's levels in price priority, filling
// resident orders in FIFO time priority, and returns the trades produced
// plus whatever quantity of the incoming order is left unfilled.
func (ob *OrderBook) match(aggressorID uint32, tick common.PriceTick, remaining uint32, side common.Side, opposite *levels) ([]common.Trade, uint32) {
	var trades []common.Trade

	for remaining > 0 {
		lvl, ok := opposite.Min()
		if !ok {
			break
		}
		if side == common.Buy && tick < lvl.tick {
			break // buy does not reach this ask level
		}
		if side == common.Sell && tick > lvl.tick {
			break // sell does not reach this bid level
		}

		consumed := 0
		for _, passiveID := range lvl.ids {
			if remaining == 0 {
				break
			}
			passive := ob.orders[passiveID]
			fill := min(remaining, passive.Quantity)

			trade := common.Trade{
				TradeID:  ob.nextTradeID,
				Price:    lvl.tick.ToDecimal(),
				Quantity: fill,
			}
			if side == common.Buy {
				trade.BuyOrderID, trade.SellOrderID = aggressorID, passiveID
			} else {
				trade.BuyOrderID, trade.SellOrderID = passiveID, aggressorID
			}
			ob.nextTradeID++
			trades = append(trades, trade)

			passive.Quantity -= fill
			remaining -= fill
			lvl.aggQty -= fill

			if passive.Quantity == 0 {
				delete(ob.orders, passiveID)
				consumed++
			} else {
				break // partial fill: this id stays at the front of the FIFO
			}
		}

		if consumed > 0 {
			lvl.ids = lvl.ids[consumed:]
		}
		if lvl.aggQty == 0 || len(lvl.ids) == 0 {
			opposite.Delete(lvl)
		}
	}

	return trades, remaining
}

// rest inserts the residual quantity of an order as a new resident on its
// own side, creating the price level if it doesn't already exist.
func (ob *OrderBook) rest(orderID uint32, tick common.PriceTick, quantity uint32, side common.Side) {
	order := &common.Order{
		OrderID:  orderID,
		Price:    tick.ToDecimal(),
		Quantity: quantity,
		Side:     side,
	}
	ob.orders[orderID] = order

	sideLevels := ob.asks
	if side == common.Buy {
		sideLevels = ob.bids
	}

	if lvl, ok := sideLevels.Get(&priceLevel{tick: tick}); ok {
		lvl.aggQty += quantity
		lvl.ids = append(lvl.ids, orderID)
		return
	}
	sideLevels.Set(&priceLevel{tick: tick, aggQty: quantity, ids: []uint32{orderID}})
}

// Cancel removes a resting order. Returns true iff the order was resident.
func (ob *OrderBook) Cancel(orderID uint32) bool {
	order, ok := ob.orders[orderID]
	if !ok {
		return false
	}
	delete(ob.orders, orderID)

	tick := common.ToTicks(order.Price)
	sideLevels := ob.asks
	if order.Side == common.Buy {
		sideLevels = ob.bids
	}

	lvl, ok := sideLevels.Get(&priceLevel{tick: tick})
	if !ok {
		return true
	}
	lvl.aggQty -= order.Quantity
	lvl.removeID(orderID)
	if lvl.aggQty == 0 || len(lvl.ids) == 0 {
		sideLevels.Delete(lvl)
	}
	return true
}

// BestBid returns the highest resting bid price, if any.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	lvl, ok := ob.bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.tick.ToDecimal(), true
}

// BestAsk returns the lowest resting ask price, if any.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := ob.asks.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.tick.ToDecimal(), true
}

// BidQtyAt returns the aggregate resting bid quantity at a price, 0 if none.
func (ob *OrderBook) BidQtyAt(price decimal.Decimal) uint32 {
	lvl, ok := ob.bids.Get(&priceLevel{tick: common.ToTicks(price)})
	if !ok {
		return 0
	}
	return lvl.aggQty
}

// AskQtyAt returns the aggregate resting ask quantity at a price, 0 if none.
func (ob *OrderBook) AskQtyAt(price decimal.Decimal) uint32 {
	lvl, ok := ob.asks.Get(&priceLevel{tick: common.ToTicks(price)})
	if !ok {
		return 0
	}
	return lvl.aggQty
}

// LogBook emits a debug-level snapshot of both sides of the book. This
// answers the wire protocol's LogBook diagnostic command (internal/wire).
func (ob *OrderBook) LogBook() {
	event := log.Debug()
	if bid, ok := ob.BestBid(); ok {
		event = event.Str("best_bid", bid.String())
	}
	if ask, ok := ob.BestAsk(); ok {
		event = event.Str("best_ask", ask.String())
	}
	event.Int("resident_orders", len(ob.orders)).Msg("book snapshot")
}
