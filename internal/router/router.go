// Package router implements the smart order router: given a prospective
// order, it scores every active, available venue by effective cost (buy)
// or proceeds (sell) — optionally fee- and latency-adjusted — and returns
// the best single venue, or splits the order across venues in ranked
// order until it is filled or liquidity runs out.
//
// Grounded on original_source/src/rust_core/src/smart_order_router.rs,
// restructured into the teacher's idiom: an explicit registration step
// (AddExchange) mirroring the teacher's internal/engine asset registry,
// and zerolog structured logging in place of the original's println!
// diagnostics.
package router

import (
	"math"

	"github.com/rs/zerolog/log"

	"meridian/internal/book"
	"meridian/internal/common"
	"meridian/internal/exchange"
)

type venueEntry struct {
	adapter  exchange.ExchangeAdapter
	fees     common.FeeSchedule
	isActive bool
}

// SmartOrderRouter scores and allocates orders across a set of registered
// venues. Not safe for concurrent use; callers serialize access the same
// way they serialize book mutation (see internal/server).
type SmartOrderRouter struct {
	venues          []*venueEntry
	considerLatency bool
	considerFees    bool
}

// New creates an empty router. considerLatency and considerFees gate
// whether RouteOrder's cost/proceeds calculation folds in latency penalty
// and fee rate respectively; with both false, a venue's score is the raw
// notional of its top-of-book price times min(quantity, top-of-book qty).
func New(considerLatency, considerFees bool) *SmartOrderRouter {
	return &SmartOrderRouter{
		considerLatency: considerLatency,
		considerFees:    considerFees,
	}
}

// AddExchange registers a venue with its fee schedule. Venues start active.
func (r *SmartOrderRouter) AddExchange(adapter exchange.ExchangeAdapter, fees common.FeeSchedule) {
	r.venues = append(r.venues, &venueEntry{adapter: adapter, fees: fees, isActive: true})
}

// SetExchangeActive flips a venue's active flag. An inactive venue is
// skipped by RouteOrder, RouteOrderSplit, and AggregatedMarketData even
// if IsAvailable() still reports true.
func (r *SmartOrderRouter) SetExchangeActive(id common.ExchangeID, active bool) {
	for _, v := range r.venues {
		if v.adapter.ID() == id {
			v.isActive = active
			return
		}
	}
}

func buyCost(price float64, quantity uint32, feeRate float64) float64 {
	notional := price * float64(quantity)
	return notional + notional*feeRate
}

func sellProceeds(price float64, quantity uint32, feeRate float64) float64 {
	notional := price * float64(quantity)
	return notional - notional*feeRate
}

// isMakerBuy reports whether a buy at price would rest rather than cross:
// true if the book has no asks, or price is below the best ask.
func isMakerBuy(ob *book.OrderBook, price float64) bool {
	bestAsk, ok := ob.BestAsk()
	if !ok {
		return true
	}
	ask, _ := bestAsk.Float64()
	return price < ask
}

// isMakerSell reports whether a sell at price would rest rather than
// cross: true if the book has no bids, or price is above the best bid.
func isMakerSell(ob *book.OrderBook, price float64) bool {
	bestBid, ok := ob.BestBid()
	if !ok {
		return true
	}
	bid, _ := bestBid.Float64()
	return price > bid
}

// RouteOrder scores every active, available venue and returns the single
// best decision. If no venue has liquidity, the zero decision (Venue ==
// common.Unknown) is returned.
func (r *SmartOrderRouter) RouteOrder(price float64, quantity uint32, side common.Side) common.RoutingDecision {
	decision := common.RoutingDecision{Venue: common.Unknown}

	if side == common.Buy {
		bestCost := math.MaxFloat64

		for _, v := range r.venues {
			if !v.isActive || !v.adapter.IsAvailable() {
				continue
			}
			ob := v.adapter.OrderBook()
			bestAskD, ok := ob.BestAsk()
			if !ok {
				continue
			}
			bestAsk, _ := bestAskD.Float64()
			availableQty := ob.AskQtyAt(bestAskD)
			if availableQty == 0 {
				continue
			}

			isMaker := isMakerBuy(ob, price)
			feeRate := v.fees.TakerRate
			if isMaker {
				feeRate = v.fees.MakerRate
			}

			fillQty := min(quantity, availableQty)
			var totalCost float64
			if r.considerFees {
				totalCost = buyCost(bestAsk, fillQty, feeRate)
			} else {
				totalCost = bestAsk * float64(fillQty)
			}
			if r.considerLatency {
				totalCost *= 1.0 + v.adapter.Metrics().AvgLatencyMS/10000.0
			}

			if totalCost < bestCost {
				bestCost = totalCost
				expectedFee := 0.0
				if r.considerFees {
					expectedFee = bestAsk * float64(fillQty) * feeRate
				}
				decision = common.RoutingDecision{
					Venue:             v.adapter.ID(),
					ExpectedPrice:     bestAsk,
					ExpectedFee:       expectedFee,
					TotalScore:        totalCost,
					AvailableQuantity: availableQty,
					IsMaker:           isMaker,
				}
			}
		}
		return decision
	}

	bestProceeds := -math.MaxFloat64
	for _, v := range r.venues {
		if !v.isActive || !v.adapter.IsAvailable() {
			continue
		}
		ob := v.adapter.OrderBook()
		bestBidD, ok := ob.BestBid()
		if !ok {
			continue
		}
		bestBid, _ := bestBidD.Float64()
		availableQty := ob.BidQtyAt(bestBidD)
		if availableQty == 0 {
			continue
		}

		isMaker := isMakerSell(ob, price)
		feeRate := v.fees.TakerRate
		if isMaker {
			feeRate = v.fees.MakerRate
		}

		fillQty := min(quantity, availableQty)
		var netProceeds float64
		if r.considerFees {
			netProceeds = sellProceeds(bestBid, fillQty, feeRate)
		} else {
			netProceeds = bestBid * float64(fillQty)
		}
		if r.considerLatency {
			netProceeds *= 1.0 - v.adapter.Metrics().AvgLatencyMS/10000.0
		}

		if netProceeds > bestProceeds {
			bestProceeds = netProceeds
			expectedFee := 0.0
			if r.considerFees {
				expectedFee = bestBid * float64(fillQty) * feeRate
			}
			decision = common.RoutingDecision{
				Venue:             v.adapter.ID(),
				ExpectedPrice:     bestBid,
				ExpectedFee:       expectedFee,
				TotalScore:        netProceeds,
				AvailableQuantity: availableQty,
				IsMaker:           isMaker,
			}
		}
	}
	return decision
}

// RouteOrderSplit repeatedly calls RouteOrder against the still-unfilled
// remainder, producing one SplitOrder per venue visited, until the full
// quantity is allocated, no venue has remaining liquidity, or every
// registered venue has already been used once (preventing an infinite
// loop, since splits are computed against a static snapshot rather than
// books updated between slices).
func (r *SmartOrderRouter) RouteOrderSplit(price float64, quantity uint32, side common.Side) []common.SplitOrder {
	var splits []common.SplitOrder
	remaining := quantity

	// A venue that has taken a slice is set inactive for the rest of this
	// call, so the next RouteOrder picks among the venues not yet used.
	var used []*venueEntry
	defer func() {
		for _, v := range used {
			v.isActive = true
		}
	}()

	for remaining > 0 {
		decision := r.RouteOrder(price, remaining, side)
		if decision.Venue == common.Unknown {
			break
		}
		for _, v := range r.venues {
			if v.isActive && v.adapter.ID() == decision.Venue {
				v.isActive = false
				used = append(used, v)
				break
			}
		}

		fillQty := min(remaining, decision.AvailableQuantity)
		expectedFee := decision.ExpectedFee
		if decision.AvailableQuantity > 0 {
			expectedFee = decision.ExpectedFee * float64(fillQty) / float64(decision.AvailableQuantity)
		}

		splits = append(splits, common.SplitOrder{
			Venue:         decision.Venue,
			Quantity:      fillQty,
			ExpectedPrice: decision.ExpectedPrice,
			ExpectedFee:   expectedFee,
		})
		remaining -= fillQty

		if len(splits) >= len(r.venues) {
			break
		}
	}

	log.Debug().
		Str("side", side.String()).
		Uint32("requested", quantity).
		Uint32("unfilled", remaining).
		Int("splits", len(splits)).
		Msg("order split across venues")

	return splits
}

// AggregatedMarketData returns the best bid/ask across every active,
// available venue and the venues that posted them. TotalBidQty/
// TotalAskQty sum only each venue's top-of-book quantity, not full depth.
func (r *SmartOrderRouter) AggregatedMarketData() common.AggregatedMarketData {
	data := common.AggregatedMarketData{
		BestBidVenue: common.Unknown,
		BestAskVenue: common.Unknown,
	}
	haveBid, haveAsk := false, false

	for _, v := range r.venues {
		if !v.isActive || !v.adapter.IsAvailable() {
			continue
		}
		ob := v.adapter.OrderBook()

		if bidD, ok := ob.BestBid(); ok {
			bid, _ := bidD.Float64()
			if !haveBid || bid > data.BestBid {
				data.BestBid = bid
				data.BestBidVenue = v.adapter.ID()
				haveBid = true
			}
			data.TotalBidQty += ob.BidQtyAt(bidD)
		}
		if askD, ok := ob.BestAsk(); ok {
			ask, _ := askD.Float64()
			if !haveAsk || ask < data.BestAsk {
				data.BestAsk = ask
				data.BestAskVenue = v.adapter.ID()
				haveAsk = true
			}
			data.TotalAskQty += ob.AskQtyAt(askD)
		}
	}

	return data
}
