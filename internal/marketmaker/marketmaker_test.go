package marketmaker

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meridian/internal/common"
	"meridian/internal/exchange"
	"meridian/internal/router"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newRouterWithMarket(t *testing.T, bid, ask string) *router.SmartOrderRouter {
	t.Helper()
	r := router.New(false, false)
	venue := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := venue.OrderBook().Add(1, d(bid), 100, common.Buy)
	require.NoError(t, err)
	_, err = venue.OrderBook().Add(2, d(ask), 100, common.Sell)
	require.NoError(t, err)
	r.AddExchange(venue, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.002})
	return r
}

func TestUpdateQuotes_InvalidMarketReturnsFalse(t *testing.T) {
	r := router.New(false, false)
	venue := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	r.AddExchange(venue, common.FeeSchedule{})

	mm := New(r, DefaultParameters())
	mm.Initialize(0, 0)

	quotes, ok := mm.UpdateQuotes()
	assert.False(t, ok)
	assert.Nil(t, quotes)
}

func TestUpdateQuotes_SymmetricAtTargetInventory(t *testing.T) {
	r := newRouterWithMarket(t, "99.90", "100.10")
	params := DefaultParameters()
	mm := New(r, params)
	mm.Initialize(params.TargetBaseInventory, 0)

	quotes, ok := mm.UpdateQuotes()
	require.True(t, ok)

	mid := 100.0
	assert.Less(t, quotes.Buy.Price, mid)
	assert.Greater(t, quotes.Sell.Price, mid)
	assert.InDelta(t, mid-quotes.Buy.Price, quotes.Sell.Price-mid, 1e-9, "at target inventory, skew is zero so the quote is symmetric")
}

// TestUpdateQuotes_HighInventoryWidensQuotesAroundMid exercises spec
// scenario S6: base_inv double the target widens the skew away from
// symmetric, pushing bid below mid-half and ask above mid+half.
func TestUpdateQuotes_HighInventoryWidensQuotesAroundMid(t *testing.T) {
	r := newRouterWithMarket(t, "99.90", "100.10")
	params := DefaultParameters()
	params.BaseSpreadBps = 20
	params.InventorySkewFactor = 0.2
	mm := New(r, params)
	mm.Initialize(10, 0) // double the target_base of 5

	quotes, ok := mm.UpdateQuotes()
	require.True(t, ok)

	mid := 100.0
	spread := mm.calculateSpread()
	half := spread / 2.0

	assert.Less(t, quotes.Buy.Price, mid*(1-half), "high base inventory must push bid below the unskewed half-spread boundary")
	assert.Greater(t, quotes.Sell.Price, mid*(1+half), "high base inventory must push ask above the unskewed half-spread boundary")
}

func TestOnQuoteFilled_InventoryConservation(t *testing.T) {
	r := newRouterWithMarket(t, "99.90", "100.10")
	mm := New(r, DefaultParameters())
	mm.Initialize(5, 10000)
	mm.lastMidpoint = 100.0

	buyQuote := Quote{Price: 99.95, Quantity: 1000, IsBuySide: true}
	baseBefore := mm.baseInventory
	quoteBefore := mm.quoteInventory

	mm.OnQuoteFilled(buyQuote, 99.95, 1000)

	deltaBase := mm.baseInventory - baseBefore
	deltaQuote := mm.quoteInventory - quoteBefore
	assert.InDelta(t, 0, deltaBase*99.95+deltaQuote, 1e-9, "P9: delta base times fill price must equal minus delta quote")
	assert.Equal(t, uint32(1), mm.quotesFilled)
	assert.InDelta(t, 1000, mm.totalVolume, 1e-9)
}

func TestIsWithinRiskLimits(t *testing.T) {
	r := newRouterWithMarket(t, "99.90", "100.10")
	params := DefaultParameters()
	mm := New(r, params)
	mm.Initialize(5, 0)
	mm.lastMidpoint = 100.0

	assert.True(t, mm.IsWithinRiskLimits())

	mm.baseInventory = params.MaxBaseInventory + 1
	assert.False(t, mm.IsWithinRiskLimits())
}

func TestAdjustParametersForRisk_WidensOnlyWhenBreached(t *testing.T) {
	r := newRouterWithMarket(t, "99.90", "100.10")
	params := DefaultParameters()
	mm := New(r, params)
	mm.Initialize(5, 0)
	mm.lastMidpoint = 100.0

	mm.AdjustParametersForRisk()
	assert.Equal(t, params.BaseSpreadBps, mm.GetParameters().BaseSpreadBps, "within limits: adjustment is a no-op")

	mm.baseInventory = -1 // forces breach (base_inv < 0)
	mm.AdjustParametersForRisk()
	assert.InDelta(t, params.BaseSpreadBps*1.5, mm.GetParameters().BaseSpreadBps, 1e-9)
	assert.InDelta(t, params.BaseQuoteSize*0.5, mm.GetParameters().BaseQuoteSize, 1e-9)
}

func TestEstimateVolatility_EMA(t *testing.T) {
	r := newRouterWithMarket(t, "99.00", "101.00")
	mm := New(r, DefaultParameters())
	mm.Initialize(0, 0)

	prior := mm.volatilityEstimate
	v := mm.EstimateVolatility()
	expected := prior*0.9 + ((101.0-99.0)/99.0)*0.1
	assert.InDelta(t, expected, v, 1e-9)
}

func TestUpdateParametersRoundTrip(t *testing.T) {
	r := newRouterWithMarket(t, "99.90", "100.10")
	mm := New(r, DefaultParameters())

	newParams := DefaultParameters()
	newParams.BaseSpreadBps = 42
	mm.UpdateParameters(newParams)
	assert.InDelta(t, 42, mm.GetParameters().BaseSpreadBps, 1e-9)
}
