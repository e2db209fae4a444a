// Command simulator runs the exchange simulator: it registers simulated
// venues with the smart order router, drives a market maker against
// them on a fixed tick interval, optionally ingests a live depth feed or
// replays historical CSV data into one venue's book, exposes Prometheus
// metrics, and serves the wire protocol for external clients to submit
// orders against the primary venue's book.
//
// Adapted from the teacher's cmd/main.go: same signal.NotifyContext +
// tomb-supervised run shape, generalized from one Engine/Server pair to
// the router/market-maker/feed/telemetry pipeline SPEC_FULL.md describes.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"meridian/internal/book"
	"meridian/internal/common"
	"meridian/internal/config"
	"meridian/internal/exchange"
	"meridian/internal/feed"
	"meridian/internal/marketmaker"
	"meridian/internal/replay"
	"meridian/internal/router"
	"meridian/internal/server"
	"meridian/internal/telemetry"
)

const (
	feedOrderIDBase      uint32 = 1_000_000
	replayOrderIDBase    uint32 = 2_000_000
	marketMakerOrderBase uint32 = 3_000_000
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to simulator configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	configureLogging(cfg.Logging)

	venueIDs := []common.ExchangeID{common.VenueAlpha, common.VenueBeta, common.VenueGamma, common.VenueDelta}
	adapters := make([]*exchange.SimulatedAdapter, 0, len(cfg.Venues))
	sor := router.New(cfg.Router.ConsiderLatency, cfg.Router.ConsiderFees)

	for i, v := range cfg.Venues {
		if i >= len(venueIDs) {
			log.Warn().Str("venue", v.Name).Msg("more venues configured than known venue ids, skipping")
			continue
		}
		adapter := exchange.NewSimulatedAdapter(venueIDs[i], v.Name)
		adapter.SetMetrics(common.ExchangeMetrics{
			AvgLatencyMS: v.AvgLatencyMS,
			FillRate:     v.FillRate,
			Uptime:       v.Uptime,
		})
		adapters = append(adapters, adapter)
		sor.AddExchange(adapter, common.FeeSchedule{MakerRate: v.MakerRate, TakerRate: v.TakerRate})
	}
	if len(adapters) == 0 {
		log.Fatal().Msg("no venues registered")
	}
	primary := adapters[0]

	mmParams := marketmaker.Parameters{
		BaseSpreadBps:        cfg.Strategy.BaseSpreadBps,
		MinSpreadBps:         cfg.Strategy.MinSpreadBps,
		MaxSpreadBps:         cfg.Strategy.MaxSpreadBps,
		MaxBaseInventory:     cfg.Strategy.MaxBaseInventory,
		MaxQuoteInventory:    cfg.Strategy.MaxQuoteInventory,
		TargetBaseInventory:  cfg.Strategy.TargetBaseInventory,
		InventorySkewFactor:  cfg.Strategy.InventorySkewFactor,
		VolatilityAdjustment: cfg.Strategy.VolatilityAdjustment,
		BaseQuoteSize:        cfg.Strategy.BaseQuoteSize,
		MinQuoteSize:         cfg.Strategy.MinQuoteSize,
		MaxQuoteSize:         cfg.Strategy.MaxQuoteSize,
	}
	mm := marketmaker.New(sor, mmParams)
	mm.Initialize(cfg.Strategy.InitialBaseInventory, cfg.Strategy.InitialQuoteInventory)

	metrics := telemetry.New()

	t, ctx := tomb.WithContext(ctx)

	if cfg.Telemetry.Enabled {
		t.Go(func() error { return runTelemetryServer(ctx, cfg.Telemetry.Address, metrics) })
	}

	if cfg.Feed.Enabled {
		venueForFeed := findVenue(adapters, cfg.Feed.Venue)
		if venueForFeed == nil {
			log.Fatal().Str("venue", cfg.Feed.Venue).Msg("feed.venue does not match any configured venue")
		}
		f := feed.New(cfg.Feed.URL)
		applier := feed.NewApplier(venueForFeed.OrderBook(), feedOrderIDBase)
		t.Go(func() error { return f.Run(ctx) })
		t.Go(func() error { return applyFeedTicks(ctx, f, applier) })
	}

	if cfg.Replay.Enabled {
		venueForReplay := findVenue(adapters, cfg.Replay.Venue)
		if venueForReplay == nil {
			log.Fatal().Str("venue", cfg.Replay.Venue).Msg("replay.venue does not match any configured venue")
		}
		file, err := os.Open(cfg.Replay.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Replay.Path).Msg("unable to open replay file")
		}
		rows, err := replay.ReadRows(file)
		file.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("unable to read replay file")
		}
		log.Info().Int("rows", len(rows)).Msg("loaded replay data")
		t.Go(func() error { return runReplay(ctx, venueForReplay.OrderBook(), rows, metrics) })
	}

	srv := server.New(cfg.Server.Address, cfg.Server.Port, primary.OrderBook())
	t.Go(func() error {
		srv.Run(ctx)
		return nil
	})

	t.Go(func() error {
		return runMarketMakerLoop(ctx, mm, adapters, cfg.Strategy.TickInterval, metrics)
	})

	<-ctx.Done()
	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("simulator stopped with error")
	}
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func findVenue(adapters []*exchange.SimulatedAdapter, name string) *exchange.SimulatedAdapter {
	for _, a := range adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// runTelemetryServer serves the Prometheus exposition endpoint until ctx
// is cancelled.
func runTelemetryServer(ctx context.Context, address string, metrics *telemetry.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: address, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func applyFeedTicks(ctx context.Context, f *feed.Feed, applier *feed.Applier) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick := <-f.Ticks():
			if err := applier.Apply(tick); err != nil {
				log.Error().Err(err).Msg("error applying feed tick")
			}
		}
	}
}

// runReplay feeds historical rows into ob's synthetic top-of-book one at
// a time, pacing itself by the gap between consecutive row timestamps
// (capped, so a multi-day gap in the data doesn't stall the simulator).
func runReplay(ctx context.Context, ob *book.OrderBook, rows []replay.Row, metrics *telemetry.Metrics) error {
	const maxRowDelay = 2 * time.Second

	var lastTimestamp int64
	for i, row := range rows {
		if i > 0 {
			delay := time.Duration(row.Timestamp-lastTimestamp) * time.Second
			if delay < 0 {
				delay = 0
			}
			if delay > maxRowDelay {
				delay = maxRowDelay
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		lastTimestamp = row.Timestamp

		ob.Cancel(replayOrderIDBase)
		ob.Cancel(replayOrderIDBase + 1)
		trades, err := replay.Apply(ob, row, replayOrderIDBase)
		if err != nil {
			log.Error().Err(err).Int("row", i).Msg("error applying replay row")
			continue
		}
		for _, trade := range trades {
			metrics.RecordTrade(common.Unknown, common.Sell, trade.Quantity)
			price, _ := trade.Price.Float64()
			telemetry.EmitTrade(row.Timestamp, 0, price, trade.Quantity, common.Sell, "MARKET", trade.TradeID, 0)
		}
	}
	return nil
}

// runMarketMakerLoop drives the market maker on a fixed interval: refresh
// quotes, rest them on the quoted venues' books as synthetic orders,
// check risk limits, and emit telemetry.
func runMarketMakerLoop(ctx context.Context, mm *marketmaker.MarketMaker, adapters []*exchange.SimulatedAdapter, interval time.Duration, metrics *telemetry.Metrics) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	nextOrderID := marketMakerOrderBase
	var lastBuyID, lastSellID uint32
	var haveLastBuy, haveLastSell bool

	venueByID := make(map[common.ExchangeID]*exchange.SimulatedAdapter, len(adapters))
	for _, a := range adapters {
		venueByID[a.ID()] = a
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			quotes, ok := mm.UpdateQuotes()
			if !ok {
				continue
			}

			buyVenue := venueByID[quotes.Buy.TargetExchange]
			sellVenue := venueByID[quotes.Sell.TargetExchange]
			if buyVenue == nil || sellVenue == nil {
				continue
			}

			if haveLastBuy {
				buyVenue.OrderBook().Cancel(lastBuyID)
			}
			if haveLastSell {
				sellVenue.OrderBook().Cancel(lastSellID)
			}

			buyID := nextOrderID
			nextOrderID++
			sellID := nextOrderID
			nextOrderID++

			var trades []common.Trade

			buyTrades, err := buyVenue.OrderBook().Add(buyID, decimal.NewFromFloat(quotes.Buy.Price), quotes.Buy.Quantity, common.Buy)
			if err != nil {
				log.Error().Err(err).Msg("error resting market maker buy quote")
			} else {
				lastBuyID, haveLastBuy = buyID, true
				metrics.RecordQuotePlaced()
				trades = append(trades, buyTrades...)
			}

			sellTrades, err := sellVenue.OrderBook().Add(sellID, decimal.NewFromFloat(quotes.Sell.Price), quotes.Sell.Quantity, common.Sell)
			if err != nil {
				log.Error().Err(err).Msg("error resting market maker sell quote")
			} else {
				lastSellID, haveLastSell = sellID, true
				metrics.RecordQuotePlaced()
				trades = append(trades, sellTrades...)
			}

			for _, trade := range trades {
				metrics.RecordQuoteFilled()
				side := common.Buy
				quote := quotes.Buy
				if trade.SellOrderID == sellID {
					side = common.Sell
					quote = quotes.Sell
				}
				metrics.RecordTrade(quote.TargetExchange, side, trade.Quantity)
				price, _ := trade.Price.Float64()
				mm.OnQuoteFilled(quote, price, trade.Quantity)
				telemetry.EmitTrade(time.Now().Unix(), int(quote.TargetExchange), price, trade.Quantity, side, "MARKET_MAKER", trade.TradeID, quotes.TheoreticalEdge)
			}

			if !mm.IsWithinRiskLimits() {
				log.Warn().Msg("market maker breached risk limits, widening parameters")
				mm.AdjustParametersForRisk()
			}

			pos := mm.InventoryPosition()
			metrics.SetMMState(pos.BaseInventory, pos.QuoteInventory, pos.PnL)
			telemetry.EmitMMState(time.Now().Unix(), int(quotes.Buy.TargetExchange), pos.BaseInventory, pos.QuoteInventory, pos.PnL, 0)
		}
	}
}
