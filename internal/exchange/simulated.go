package exchange

import (
	"meridian/internal/book"
	"meridian/internal/common"
)

// SimulatedAdapter is an ExchangeAdapter backed by an in-process order
// book, used by cmd/simulator to stand in for real venue connections.
type SimulatedAdapter struct {
	id        common.ExchangeID
	name      string
	book      *book.OrderBook
	available bool
	metrics   common.ExchangeMetrics
}

// NewSimulatedAdapter creates an adapter with a fresh, empty order book.
// It starts available with the default exchange metrics; callers wanting
// different latency/fill/uptime figures should follow with SetMetrics.
func NewSimulatedAdapter(id common.ExchangeID, name string) *SimulatedAdapter {
	return &SimulatedAdapter{
		id:        id,
		name:      name,
		book:      book.New(),
		available: true,
		metrics:   common.DefaultExchangeMetrics(),
	}
}

func (a *SimulatedAdapter) OrderBook() *book.OrderBook       { return a.book }
func (a *SimulatedAdapter) ID() common.ExchangeID            { return a.id }
func (a *SimulatedAdapter) Name() string                     { return a.name }
func (a *SimulatedAdapter) IsAvailable() bool                { return a.available }
func (a *SimulatedAdapter) Metrics() common.ExchangeMetrics  { return a.metrics }

// SetAvailable flips the adapter's simulated up/down state, so a scenario
// can exercise the router's handling of a venue that stops responding.
func (a *SimulatedAdapter) SetAvailable(available bool) { a.available = available }

// SetMetrics overrides the default latency/fill/uptime figures the router
// scores this venue against.
func (a *SimulatedAdapter) SetMetrics(m common.ExchangeMetrics) { a.metrics = m }
