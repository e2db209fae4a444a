package router

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meridian/internal/common"
	"meridian/internal/exchange"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRouteOrder_PicksCheapestAskForBuy(t *testing.T) {
	r := New(false, false)

	alpha := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := alpha.OrderBook().Add(1, d("100.50"), 10, common.Sell)
	require.NoError(t, err)
	r.AddExchange(alpha, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.002})

	beta := exchange.NewSimulatedAdapter(common.VenueBeta, "Beta")
	_, err = beta.OrderBook().Add(1, d("100.25"), 10, common.Sell)
	require.NoError(t, err)
	r.AddExchange(beta, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.002})

	decision := r.RouteOrder(100.25, 10, common.Buy)
	assert.Equal(t, common.VenueBeta, decision.Venue)
	assert.InDelta(t, 100.25, decision.ExpectedPrice, 1e-9)
}

func TestRouteOrder_PicksHighestBidForSell(t *testing.T) {
	r := New(false, false)

	alpha := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := alpha.OrderBook().Add(1, d("99.00"), 10, common.Buy)
	require.NoError(t, err)
	r.AddExchange(alpha, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.002})

	beta := exchange.NewSimulatedAdapter(common.VenueBeta, "Beta")
	_, err = beta.OrderBook().Add(1, d("99.50"), 10, common.Buy)
	require.NoError(t, err)
	r.AddExchange(beta, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.002})

	decision := r.RouteOrder(99.50, 10, common.Sell)
	assert.Equal(t, common.VenueBeta, decision.Venue)
}

func TestRouteOrder_SkipsInactiveAndUnavailableVenues(t *testing.T) {
	r := New(false, false)

	alpha := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := alpha.OrderBook().Add(1, d("100.00"), 10, common.Sell)
	require.NoError(t, err)
	r.AddExchange(alpha, common.FeeSchedule{})
	r.SetExchangeActive(common.VenueAlpha, false)

	beta := exchange.NewSimulatedAdapter(common.VenueBeta, "Beta")
	beta.SetAvailable(false)
	_, err = beta.OrderBook().Add(1, d("99.00"), 10, common.Sell)
	require.NoError(t, err)
	r.AddExchange(beta, common.FeeSchedule{})

	decision := r.RouteOrder(99.00, 10, common.Buy)
	assert.Equal(t, common.Unknown, decision.Venue)
}

func TestRouteOrder_NoLiquidityReturnsUnknown(t *testing.T) {
	r := New(false, false)
	alpha := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	r.AddExchange(alpha, common.FeeSchedule{})

	decision := r.RouteOrder(100.0, 10, common.Buy)
	assert.Equal(t, common.Unknown, decision.Venue)
}

func TestRouteOrder_FeesAndLatencyAffectScoring(t *testing.T) {
	r := New(true, true)

	cheap := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := cheap.OrderBook().Add(1, d("100.00"), 10, common.Sell)
	require.NoError(t, err)
	cheap.SetMetrics(common.ExchangeMetrics{AvgLatencyMS: 500, FillRate: 0.9, Uptime: 0.99})
	r.AddExchange(cheap, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.05})

	slightlyHigher := exchange.NewSimulatedAdapter(common.VenueBeta, "Beta")
	_, err = slightlyHigher.OrderBook().Add(1, d("100.05"), 10, common.Sell)
	require.NoError(t, err)
	slightlyHigher.SetMetrics(common.ExchangeMetrics{AvgLatencyMS: 1, FillRate: 0.99, Uptime: 0.999})
	r.AddExchange(slightlyHigher, common.FeeSchedule{MakerRate: 0.001, TakerRate: 0.001})

	decision := r.RouteOrder(100.05, 10, common.Buy)
	assert.Equal(t, common.VenueBeta, decision.Venue, "high taker fee + latency penalty should push the router off the raw-cheapest venue")
}

func TestRouteOrderSplit_AllocatesAcrossVenuesAndTerminates(t *testing.T) {
	r := New(false, false)

	alpha := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := alpha.OrderBook().Add(1, d("100.00"), 5, common.Sell)
	require.NoError(t, err)
	r.AddExchange(alpha, common.FeeSchedule{})

	beta := exchange.NewSimulatedAdapter(common.VenueBeta, "Beta")
	_, err = beta.OrderBook().Add(1, d("100.10"), 5, common.Sell)
	require.NoError(t, err)
	r.AddExchange(beta, common.FeeSchedule{})

	splits := r.RouteOrderSplit(100.10, 20, common.Buy)
	require.Len(t, splits, 2, "only two venues registered: split must stop even though 10 of 20 units remain unfilled")

	var total uint32
	for _, s := range splits {
		total += s.Quantity
	}
	assert.Equal(t, uint32(10), total)
}

func TestAggregatedMarketData(t *testing.T) {
	r := New(false, false)

	alpha := exchange.NewSimulatedAdapter(common.VenueAlpha, "Alpha")
	_, err := alpha.OrderBook().Add(1, d("99.00"), 10, common.Buy)
	require.NoError(t, err)
	_, err = alpha.OrderBook().Add(2, d("101.00"), 5, common.Sell)
	require.NoError(t, err)
	r.AddExchange(alpha, common.FeeSchedule{})

	beta := exchange.NewSimulatedAdapter(common.VenueBeta, "Beta")
	_, err = beta.OrderBook().Add(1, d("99.50"), 7, common.Buy)
	require.NoError(t, err)
	_, err = beta.OrderBook().Add(2, d("100.50"), 3, common.Sell)
	require.NoError(t, err)
	r.AddExchange(beta, common.FeeSchedule{})

	data := r.AggregatedMarketData()
	assert.InDelta(t, 99.50, data.BestBid, 1e-9)
	assert.Equal(t, common.VenueBeta, data.BestBidVenue)
	assert.InDelta(t, 100.50, data.BestAsk, 1e-9)
	assert.Equal(t, common.VenueBeta, data.BestAskVenue)
	assert.Equal(t, uint32(17), data.TotalBidQty)
	assert.Equal(t, uint32(8), data.TotalAskQty)
}
