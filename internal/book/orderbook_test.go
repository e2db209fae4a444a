package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meridian/internal/common"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAdd_RestsWhenNoCross(t *testing.T) {
	ob := New()

	trades, err := ob.Add(1, d("100.00"), 10, common.Buy)
	require.NoError(t, err)
	assert.Empty(t, trades)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(d("100.00")))
	assert.Equal(t, uint32(10), ob.BidQtyAt(d("100.00")))

	_, ok = ob.BestAsk()
	assert.False(t, ok)
}

func TestAdd_FullCrossSingleCounterparty(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 10, common.Sell)
	require.NoError(t, err)

	trades, err := ob.Add(2, d("100.00"), 10, common.Buy)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.True(t, trade.Price.Equal(d("100.00")))
	assert.Equal(t, uint32(10), trade.Quantity)
	assert.Equal(t, uint32(2), trade.BuyOrderID)
	assert.Equal(t, uint32(1), trade.SellOrderID)

	_, ok := ob.BestBid()
	assert.False(t, ok)
	_, ok = ob.BestAsk()
	assert.False(t, ok)
}

func TestAdd_PartialFillLeavesResidualOnAggressor(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 5, common.Sell)
	require.NoError(t, err)

	trades, err := ob.Add(2, d("100.00"), 10, common.Buy)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint32(5), trades[0].Quantity)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(d("100.00")))
	assert.Equal(t, uint32(5), ob.BidQtyAt(d("100.00")))
}

func TestAdd_PriceTimePriorityFIFO(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 5, common.Sell)
	require.NoError(t, err)
	_, err = ob.Add(2, d("100.00"), 5, common.Sell)
	require.NoError(t, err)

	trades, err := ob.Add(3, d("100.00"), 5, common.Buy)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint32(1), trades[0].SellOrderID, "earliest resting order at the level must fill first")

	assert.Equal(t, uint32(5), ob.AskQtyAt(d("100.00")))
}

func TestAdd_SweepsMultipleLevels(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 5, common.Sell)
	require.NoError(t, err)
	_, err = ob.Add(2, d("101.00"), 5, common.Sell)
	require.NoError(t, err)

	trades, err := ob.Add(3, d("101.00"), 10, common.Buy)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.True(t, trades[0].Price.Equal(d("100.00")))
	assert.True(t, trades[1].Price.Equal(d("101.00")))

	_, ok := ob.BestAsk()
	assert.False(t, ok)
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 0, common.Buy)
	assert.ErrorIs(t, err, common.ErrInvalidQuantity)

	_, err = ob.Add(1, d("0"), 10, common.Buy)
	assert.ErrorIs(t, err, common.ErrInvalidPrice)

	_, err = ob.Add(1, d("-1.00"), 10, common.Buy)
	assert.ErrorIs(t, err, common.ErrInvalidPrice)

	_, err = ob.Add(1, d("100.00"), 10, common.Buy)
	require.NoError(t, err)
	_, err = ob.Add(1, d("100.00"), 10, common.Buy)
	assert.ErrorIs(t, err, common.ErrDuplicateOrder)
}

func TestCancel(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 10, common.Buy)
	require.NoError(t, err)

	assert.True(t, ob.Cancel(1))
	assert.False(t, ob.Cancel(1), "cancel of an already-removed id is a no-op")

	_, ok := ob.BestBid()
	assert.False(t, ok)
	assert.Equal(t, uint32(0), ob.BidQtyAt(d("100.00")))
}

func TestCancel_UnknownOrderIDIsNoOp(t *testing.T) {
	ob := New()
	assert.False(t, ob.Cancel(999))
}

func TestCancel_LeavesRestOfLevelIntact(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 5, common.Buy)
	require.NoError(t, err)
	_, err = ob.Add(2, d("100.00"), 5, common.Buy)
	require.NoError(t, err)

	assert.True(t, ob.Cancel(1))
	assert.Equal(t, uint32(5), ob.BidQtyAt(d("100.00")))

	trades, err := ob.Add(3, d("100.00"), 5, common.Sell)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint32(2), trades[0].BuyOrderID, "order 1 was cancelled, order 2 must fill")
}

func TestAdd_DoesNotCrossWhenPriceDoesNotReach(t *testing.T) {
	ob := New()

	_, err := ob.Add(1, d("100.00"), 10, common.Sell)
	require.NoError(t, err)

	trades, err := ob.Add(2, d("99.00"), 10, common.Buy)
	require.NoError(t, err)
	assert.Empty(t, trades)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(d("99.00")))
	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(d("100.00")))
}

func TestLogBook_DoesNotPanicOnEmptyBook(t *testing.T) {
	ob := New()
	assert.NotPanics(t, func() { ob.LogBook() })
}
