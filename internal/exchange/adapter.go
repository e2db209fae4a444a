// Package exchange defines the venue-facing seam the router trades
// against: an ExchangeAdapter wraps one venue's order book behind a
// uniform identity/availability/metrics surface, so the router never
// needs to know whether a venue is simulated or real.
//
// Grounded on the teacher's internal/engine asset-keyed book ownership,
// generalized to the Exchange trait in original_source's
// smart_order_router.rs (get_order_book/get_id/get_name/is_available/
// get_metrics).
package exchange

import (
	"meridian/internal/book"
	"meridian/internal/common"
)

// ExchangeAdapter is one venue's order book plus its identity and runtime
// health. Implementations are free to back OrderBook with a simulated
// book (SimulatedAdapter) or a real venue connection.
type ExchangeAdapter interface {
	OrderBook() *book.OrderBook
	ID() common.ExchangeID
	Name() string
	IsAvailable() bool
	Metrics() common.ExchangeMetrics
}
