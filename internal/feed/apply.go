package feed

import (
	"github.com/shopspring/decimal"

	"meridian/internal/book"
	"meridian/internal/common"
)

// Applier replaces a venue's synthetic top-of-book with each incoming
// DepthTick: it cancels the previous synthetic bid/ask (if any) and adds
// fresh ones at the tick's price/size. Order ids are drawn from a
// dedicated counter starting at the id given to NewApplier; cmd/simulator
// starts it at its own base, apart from the replay and market maker bases.
// Client-submitted ids are chosen by the client and are not checked
// against this range.
type Applier struct {
	ob            *book.OrderBook
	nextID        uint32
	lastBidID     uint32
	lastAskID     uint32
	haveLastBid   bool
	haveLastAsk   bool
}

// NewApplier creates an Applier targeting ob, drawing synthetic order ids
// starting at startID.
func NewApplier(ob *book.OrderBook, startID uint32) *Applier {
	return &Applier{ob: ob, nextID: startID}
}

// Apply replaces the book's synthetic bid and ask with tick's values.
func (a *Applier) Apply(tick DepthTick) error {
	if a.haveLastBid {
		a.ob.Cancel(a.lastBidID)
	}
	if a.haveLastAsk {
		a.ob.Cancel(a.lastAskID)
	}
	a.haveLastBid, a.haveLastAsk = false, false

	if tick.Bid > 0 && tick.BidSize > 0 {
		id := a.nextID
		a.nextID++
		if _, err := a.ob.Add(id, decimal.NewFromFloat(tick.Bid), tick.BidSize, common.Buy); err != nil {
			return err
		}
		a.lastBidID, a.haveLastBid = id, true
	}

	if tick.Ask > 0 && tick.AskSize > 0 {
		id := a.nextID
		a.nextID++
		if _, err := a.ob.Add(id, decimal.NewFromFloat(tick.Ask), tick.AskSize, common.Sell); err != nil {
			return err
		}
		a.lastAskID, a.haveLastAsk = id, true
	}

	return nil
}
