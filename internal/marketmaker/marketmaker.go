// Package marketmaker implements a symmetric, inventory-aware quoting
// strategy: each tick it reads the router's aggregated top-of-book,
// widens or narrows its spread by a volatility estimate and inventory
// skew, and asks the router which venue it would land on for each side.
//
// Grounded on original_source/src/rust_core/src/market_maker.rs, restated
// in the teacher's idiom: zerolog structured logging in place of
// println!/eprintln!, and an explicit clock-free tick driven entirely by
// the caller (no embedded start_time; runtime/uptime reporting is a
// driver concern, not this package's).
package marketmaker

import (
	"github.com/rs/zerolog/log"

	"meridian/internal/common"
	"meridian/internal/router"
)

// Parameters are the MarketMaker's bounded, mutable tuning knobs. All
// fields are replaceable as a unit via UpdateParameters.
type Parameters struct {
	BaseSpreadBps float64
	MinSpreadBps  float64
	MaxSpreadBps  float64

	MaxBaseInventory    float64
	MaxQuoteInventory   float64
	TargetBaseInventory float64

	InventorySkewFactor  float64
	VolatilityAdjustment float64

	BaseQuoteSize float64
	MinQuoteSize  float64
	MaxQuoteSize  float64
}

// DefaultParameters mirrors the reference strategy's starting point: a
// 10bps spread clamped to [5, 50]bps, a 5-unit target base inventory with
// a 10-unit ceiling, 10% inventory skew, no volatility multiplier beyond
// 1x, and a 0.1-unit base quote size clamped to [0.01, 1.0].
func DefaultParameters() Parameters {
	return Parameters{
		BaseSpreadBps:        10.0,
		MinSpreadBps:         5.0,
		MaxSpreadBps:         50.0,
		MaxBaseInventory:     10.0,
		MaxQuoteInventory:    500000.0,
		TargetBaseInventory:  5.0,
		InventorySkewFactor:  0.1,
		VolatilityAdjustment: 1.0,
		BaseQuoteSize:        0.1,
		MinQuoteSize:         0.01,
		MaxQuoteSize:         1.0,
	}
}

// Quote is one side of a quoted market, annotated with the venue the
// router picked for it.
type Quote struct {
	Price          float64
	Quantity       uint32
	IsBuySide      bool
	TargetExchange common.ExchangeID
}

// Quotes is the result of one UpdateQuotes tick.
type Quotes struct {
	Buy             Quote
	Sell            Quote
	TheoreticalEdge float64
}

// InventoryPosition is a point-in-time snapshot of holdings and P&L.
type InventoryPosition struct {
	BaseInventory  float64
	QuoteInventory float64
	BaseValue      float64
	TotalValue     float64
	PnL            float64
}

// quoteQuantityScale converts MarketMaker's base-unit sizing into the
// integer quantity unit the OrderBook and router operate on: quantities
// there are "hundredths of base" by this package's own convention, never
// interpreted by OrderBook or SmartOrderRouter.
const quoteQuantityScale = 100.0

// MarketMaker quotes both sides of a market against a SmartOrderRouter's
// aggregated view, tracking its own inventory and realized P&L. It holds
// a non-owning reference to the router: the router must outlive the
// MarketMaker.
type MarketMaker struct {
	sor    *router.SmartOrderRouter
	params Parameters

	baseInventory         float64
	quoteInventory        float64
	initialBaseInventory  float64
	initialQuoteInventory float64

	lastMidpoint        float64
	volatilityEstimate  float64

	quotesPlaced uint32
	quotesFilled uint32
	totalVolume  float64
	realizedPnL  float64
}

// New creates a MarketMaker bound to sor with the given parameters. The
// volatility estimate starts at 0.001 (0.1%), matching the reference
// strategy's default prior.
func New(sor *router.SmartOrderRouter, params Parameters) *MarketMaker {
	return &MarketMaker{
		sor:                sor,
		params:             params,
		volatilityEstimate: 0.001,
	}
}

// Initialize seeds starting inventory and captures it as the baseline
// every subsequent P&L figure is measured against.
func (mm *MarketMaker) Initialize(baseInventory, quoteInventory float64) {
	mm.baseInventory = baseInventory
	mm.quoteInventory = quoteInventory
	mm.initialBaseInventory = baseInventory
	mm.initialQuoteInventory = quoteInventory

	log.Info().
		Float64("base_inventory", baseInventory).
		Float64("quote_inventory", quoteInventory).
		Msg("market maker initialized")
}

func (mm *MarketMaker) calculateMidpoint() float64 {
	data := mm.sor.AggregatedMarketData()
	if data.BestBidVenue == common.Unknown || data.BestAskVenue == common.Unknown {
		return mm.lastMidpoint
	}
	mid := (data.BestBid + data.BestAsk) / 2.0
	mm.lastMidpoint = mid
	return mid
}

func (mm *MarketMaker) calculateInventorySkew() float64 {
	if mm.params.TargetBaseInventory <= 0 {
		return 0
	}
	imbalance := mm.baseInventory/mm.params.TargetBaseInventory - 1.0
	return imbalance * mm.params.InventorySkewFactor
}

func (mm *MarketMaker) calculateSpread() float64 {
	spreadBps := mm.params.BaseSpreadBps
	spreadBps *= 1.0 + mm.volatilityEstimate*mm.params.VolatilityAdjustment

	skew := mm.calculateInventorySkew()
	spreadBps *= 1.0 + abs(skew)*0.5

	spreadBps = clamp(spreadBps, mm.params.MinSpreadBps, mm.params.MaxSpreadBps)
	return spreadBps / 10000.0
}

func (mm *MarketMaker) calculateQuotePrices(midpoint, spread float64) (bid, ask float64) {
	half := spread / 2.0
	skew := mm.calculateInventorySkew()

	bidAdjustment := 1.0 - half - skew*half
	askAdjustment := 1.0 + half + skew*half
	return midpoint * bidAdjustment, midpoint * askAdjustment
}

func (mm *MarketMaker) calculateQuoteSize(isBuySide bool) uint32 {
	size := mm.params.BaseQuoteSize

	if isBuySide {
		ratio := mm.baseInventory / mm.params.MaxBaseInventory
		size *= 1.0 - ratio*0.5
	} else {
		ratio := mm.baseInventory / mm.params.TargetBaseInventory
		size *= min64(ratio, 1.0)
	}

	quantity := uint32(size * quoteQuantityScale)
	minQty := uint32(mm.params.MinQuoteSize * quoteQuantityScale)
	maxQty := uint32(mm.params.MaxQuoteSize * quoteQuantityScale)
	if quantity < minQty {
		quantity = minQty
	}
	if quantity > maxQty {
		quantity = maxQty
	}
	return quantity
}

// UpdateQuotes runs one tick: derives a midpoint and spread, prices both
// sides, queries the router for a target venue per side, and returns the
// resulting quotes. Returns (nil, false) when no valid midpoint can be
// derived (never-seen market with no prior tick to fall back on).
func (mm *MarketMaker) UpdateQuotes() (*Quotes, bool) {
	midpoint := mm.calculateMidpoint()
	if midpoint <= 0 {
		log.Warn().Msg("invalid market midpoint")
		return nil, false
	}

	spread := mm.calculateSpread()
	bidPrice, askPrice := mm.calculateQuotePrices(midpoint, spread)

	buySize := mm.calculateQuoteSize(true)
	sellSize := mm.calculateQuoteSize(false)

	mm.quotesPlaced++
	buyRouting := mm.sor.RouteOrder(bidPrice, buySize, common.Buy)
	mm.quotesPlaced++
	sellRouting := mm.sor.RouteOrder(askPrice, sellSize, common.Sell)

	quotes := &Quotes{
		Buy:             Quote{Price: bidPrice, Quantity: buySize, IsBuySide: true, TargetExchange: buyRouting.Venue},
		Sell:            Quote{Price: askPrice, Quantity: sellSize, IsBuySide: false, TargetExchange: sellRouting.Venue},
		TheoreticalEdge: (askPrice - bidPrice) - (buyRouting.ExpectedFee + sellRouting.ExpectedFee),
	}
	return quotes, true
}

// OnQuoteFilled applies a fill to inventory, updates realized P&L against
// the last observed midpoint, and bumps the fill/volume counters.
func (mm *MarketMaker) OnQuoteFilled(quote Quote, fillPrice float64, fillQuantity uint32) {
	mm.quotesFilled++
	mm.totalVolume += float64(fillQuantity)

	fillUnits := float64(fillQuantity) / quoteQuantityScale
	if quote.IsBuySide {
		mm.baseInventory += fillUnits
		mm.quoteInventory -= fillPrice * fillUnits
	} else {
		mm.baseInventory -= fillUnits
		mm.quoteInventory += fillPrice * fillUnits
	}

	positionValue := mm.baseInventory*mm.lastMidpoint + mm.quoteInventory
	initialValue := mm.initialBaseInventory*mm.lastMidpoint + mm.initialQuoteInventory
	mm.realizedPnL = positionValue - initialValue

	log.Debug().
		Bool("buy_side", quote.IsBuySide).
		Float64("fill_units", fillUnits).
		Float64("fill_price", fillPrice).
		Float64("realized_pnl", mm.realizedPnL).
		Msg("quote filled")
}

// IsWithinRiskLimits reports whether current inventory stays inside the
// parameters' bounds: base inventory in [0, max], quote inventory in
// [-0.1*max, max], and |base*mid| within 110% of the max position value.
func (mm *MarketMaker) IsWithinRiskLimits() bool {
	if mm.baseInventory > mm.params.MaxBaseInventory || mm.baseInventory < 0 {
		return false
	}
	if mm.quoteInventory > mm.params.MaxQuoteInventory || mm.quoteInventory < -mm.params.MaxQuoteInventory*0.1 {
		return false
	}

	positionValue := abs(mm.baseInventory * mm.lastMidpoint)
	maxPositionValue := mm.params.MaxBaseInventory * mm.lastMidpoint
	return positionValue <= maxPositionValue*1.1
}

// AdjustParametersForRisk widens the base spread by 1.5x and halves the
// base quote size, one shot, whenever the risk predicate is currently
// false. Safe to call every tick; it is a no-op when within limits.
func (mm *MarketMaker) AdjustParametersForRisk() {
	if mm.IsWithinRiskLimits() {
		return
	}
	mm.params.BaseSpreadBps *= 1.5
	mm.params.BaseQuoteSize *= 0.5
	log.Warn().
		Float64("new_base_spread_bps", mm.params.BaseSpreadBps).
		Float64("new_base_quote_size", mm.params.BaseQuoteSize).
		Msg("risk limits exceeded, widening parameters")
}

// InventoryPosition returns a snapshot of current holdings and P&L
// measured against the last observed midpoint.
func (mm *MarketMaker) InventoryPosition() InventoryPosition {
	baseValue := mm.baseInventory * mm.lastMidpoint
	totalValue := baseValue + mm.quoteInventory
	initialValue := mm.initialBaseInventory*mm.lastMidpoint + mm.initialQuoteInventory

	return InventoryPosition{
		BaseInventory:  mm.baseInventory,
		QuoteInventory: mm.quoteInventory,
		BaseValue:      baseValue,
		TotalValue:     totalValue,
		PnL:            totalValue - initialValue,
	}
}

// InventoryImbalance returns the fractional deviation of base inventory
// from its target, 0 if no positive target is configured.
func (mm *MarketMaker) InventoryImbalance() float64 {
	if mm.params.TargetBaseInventory <= 0 {
		return 0
	}
	return (mm.baseInventory - mm.params.TargetBaseInventory) / mm.params.TargetBaseInventory
}

// FillRate returns quotesFilled/quotesPlaced, 0 if nothing has been placed.
func (mm *MarketMaker) FillRate() float64 {
	if mm.quotesPlaced == 0 {
		return 0
	}
	return float64(mm.quotesFilled) / float64(mm.quotesPlaced)
}

// EstimateVolatility folds the current relative bid/ask spread into an
// EMA volatility estimate (0.9 prior weight, 0.1 new-sample weight) and
// returns the updated value. Returns the unchanged prior estimate if the
// market currently has no two-sided top-of-book.
func (mm *MarketMaker) EstimateVolatility() float64 {
	data := mm.sor.AggregatedMarketData()
	if data.BestBidVenue == common.Unknown || data.BestAskVenue == common.Unknown || data.BestBid <= 0 {
		return mm.volatilityEstimate
	}
	spread := (data.BestAsk - data.BestBid) / data.BestBid
	mm.volatilityEstimate = mm.volatilityEstimate*0.9 + spread*0.1
	return mm.volatilityEstimate
}

// UpdateParameters replaces the tuning knobs wholesale.
func (mm *MarketMaker) UpdateParameters(params Parameters) { mm.params = params }

// GetParameters returns the current tuning knobs.
func (mm *MarketMaker) GetParameters() Parameters { return mm.params }

// RealizedPnL returns the P&L recorded at the most recent fill: holdings
// after that fill minus initial holdings, both valued at the midpoint last
// observed when the fill was applied.
func (mm *MarketMaker) RealizedPnL() float64 { return mm.realizedPnL }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
