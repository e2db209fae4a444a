package common

// ExchangeID is a closed enumeration of known venues plus Unknown, which is
// used only as the "no decision" sentinel returned by the router.
//
// The concrete venue names (VenueAlpha..VenueDelta) stand in for the four
// named venues (Binance, Coinbase, Kraken, FTX) the simulator this was
// adapted from enumerated — this module trades against simulated venues,
// not real exchanges, so the names are deliberately generic.
type ExchangeID int

const (
	Unknown ExchangeID = iota
	VenueAlpha
	VenueBeta
	VenueGamma
	VenueDelta
)

func (id ExchangeID) String() string {
	switch id {
	case VenueAlpha:
		return "VenueAlpha"
	case VenueBeta:
		return "VenueBeta"
	case VenueGamma:
		return "VenueGamma"
	case VenueDelta:
		return "VenueDelta"
	default:
		return "Unknown"
	}
}

// FeeSchedule is the maker/taker fee rates a venue charges, each expressed
// as a decimal fraction (0.001 == 10 bps).
type FeeSchedule struct {
	MakerRate float64
	TakerRate float64
}

// ExchangeMetrics are the static, read-only performance figures the router
// scores a venue against.
type ExchangeMetrics struct {
	AvgLatencyMS float64
	FillRate     float64
	Uptime       float64
}

// DefaultExchangeMetrics is the metrics value an ExchangeAdapter implementer
// should return when it has nothing better: 10ms latency, 95% fill rate,
// 99.9% uptime.
func DefaultExchangeMetrics() ExchangeMetrics {
	return ExchangeMetrics{AvgLatencyMS: 10, FillRate: 0.95, Uptime: 0.999}
}

// RoutingDecision is the outcome of SmartOrderRouter.RouteOrder: the single
// venue (or Unknown) the router picked for a prospective order, along with
// the top-of-book price/fee it priced against and the scalar it optimized.
type RoutingDecision struct {
	Venue             ExchangeID
	ExpectedPrice     float64
	ExpectedFee       float64
	TotalScore        float64
	AvailableQuantity uint32
	IsMaker           bool
}

// SplitOrder is one venue's allocation from SmartOrderRouter.RouteOrderSplit.
type SplitOrder struct {
	Venue         ExchangeID
	Quantity      uint32
	ExpectedPrice float64
	ExpectedFee   float64
}

// AggregatedMarketData is the cross-venue top-of-book view produced by
// SmartOrderRouter.AggregatedMarketData.
type AggregatedMarketData struct {
	BestBid      float64
	BestAsk      float64
	TotalBidQty  uint32
	TotalAskQty  uint32
	BestBidVenue ExchangeID
	BestAskVenue ExchangeID
}
