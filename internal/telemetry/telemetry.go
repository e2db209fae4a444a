// Package telemetry exposes Prometheus counters/gauges for trades, quotes,
// and market maker inventory/P&L, plus the textual TRADE/MM_STATE
// emission format spec.md §6 defines for drivers to print.
//
// Grounded on DimaJoyti-ai-agentic-crypto-browser/pkg/observability/metrics.go
// for the registry/metrics-struct shape, simplified to direct
// github.com/prometheus/client_golang/prometheus instrumentation — this
// repo has no use for that file's OpenTelemetry SDK layer (no tracing,
// no distributed context propagation anywhere in this module), so only
// the Prometheus registry and metric types it wires are carried over.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"meridian/internal/common"
)

// Metrics holds the Prometheus instruments this simulator reports.
type Metrics struct {
	registry *prometheus.Registry

	tradesTotal    *prometheus.CounterVec
	tradeVolume    *prometheus.CounterVec
	quotesPlaced   prometheus.Counter
	quotesFilled   prometheus.Counter
	mmBaseInventory  prometheus.Gauge
	mmQuoteInventory prometheus.Gauge
	mmRealizedPnL    prometheus.Gauge
}

// New creates a Metrics instance and registers all instruments against a
// fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		tradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "trades_total",
			Help:      "Total number of trades executed, labeled by venue and side.",
		}, []string{"venue", "side"}),
		tradeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "trade_volume_total",
			Help:      "Total traded quantity, labeled by venue and side.",
		}, []string{"venue", "side"}),
		quotesPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "quotes_placed_total",
			Help:      "Total quotes placed by the market maker.",
		}),
		quotesFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "quotes_filled_total",
			Help:      "Total quotes filled for the market maker.",
		}),
		mmBaseInventory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meridian",
			Name:      "mm_base_inventory",
			Help:      "Market maker current base inventory.",
		}),
		mmQuoteInventory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meridian",
			Name:      "mm_quote_inventory",
			Help:      "Market maker current quote inventory.",
		}),
		mmRealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meridian",
			Name:      "mm_realized_pnl",
			Help:      "Market maker realized profit and loss.",
		}),
	}

	registry.MustRegister(
		m.tradesTotal,
		m.tradeVolume,
		m.quotesPlaced,
		m.quotesFilled,
		m.mmBaseInventory,
		m.mmQuoteInventory,
		m.mmRealizedPnL,
	)
	return m
}

// Handler returns an http.Handler serving this registry's metrics in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTrade increments the trade counters for venue/side and the
// traded quantity.
func (m *Metrics) RecordTrade(venue common.ExchangeID, side common.Side, quantity uint32) {
	m.tradesTotal.WithLabelValues(venue.String(), side.String()).Inc()
	m.tradeVolume.WithLabelValues(venue.String(), side.String()).Add(float64(quantity))
}

// RecordQuotePlaced increments the quotes-placed counter.
func (m *Metrics) RecordQuotePlaced() { m.quotesPlaced.Inc() }

// RecordQuoteFilled increments the quotes-filled counter.
func (m *Metrics) RecordQuoteFilled() { m.quotesFilled.Inc() }

// SetMMState updates the market maker inventory/P&L gauges.
func (m *Metrics) SetMMState(baseInventory, quoteInventory, realizedPnL float64) {
	m.mmBaseInventory.Set(baseInventory)
	m.mmQuoteInventory.Set(quoteInventory)
	m.mmRealizedPnL.Set(realizedPnL)
}

// EmitTrade prints the TRADE,<ts>,<venue_idx>,<price>,<qty>,<BUY|SELL>,
// <MARKET_MAKER|MARKET>,<trade_id>,<impact> line spec.md §6 defines.
func EmitTrade(timestamp int64, venueIdx int, price float64, quantity uint32, side common.Side, origin string, tradeID uint32, impact float64) {
	line := fmt.Sprintf("TRADE,%d,%d,%.2f,%d,%s,%s,%d,%.6f",
		timestamp, venueIdx, price, quantity, side.String(), origin, tradeID, impact)
	log.Info().Msg(line)
}

// EmitMMState prints the MM_STATE,<ts>,<venue_idx>,<base>,<quote>,<pnl>,
// <drawdown> line spec.md §6 defines.
func EmitMMState(timestamp int64, venueIdx int, base, quote, pnl, drawdown float64) {
	line := fmt.Sprintf("MM_STATE,%d,%d,%.6f,%.2f,%.2f,%.2f",
		timestamp, venueIdx, base, quote, pnl, drawdown)
	log.Info().Msg(line)
}
