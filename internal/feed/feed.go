// Package feed ingests a live depth-feed over WebSocket and applies
// bid/ask/size ticks to a target venue's order book as synthetic resting
// orders. It is a driver-side collaborator: nothing in internal/book,
// internal/router, or internal/marketmaker depends on it.
//
// Grounded on 0xtitan6-polymarket-mm/internal/exchange/ws.go — the same
// auto-reconnect-with-exponential-backoff and typed-event-channel shape,
// simplified to a single depth channel (this module has no user/auth
// channel) and re-targeted from JSON book/price_change envelopes to this
// module's DepthTick shape. zerolog replaces that file's log/slog, per
// the teacher's own logging choice.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	maxReconnectWait = 30 * time.Second
	readTimeout      = 90 * time.Second
	writeTimeout     = 10 * time.Second
	tickBufferSize   = 256
)

// DepthTick is one bid/ask/size update received from the feed.
type DepthTick struct {
	Symbol  string  `json:"symbol"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
	BidSize uint32  `json:"bid_size"`
	AskSize uint32  `json:"ask_size"`
}

// Feed manages a single WebSocket connection to a depth-feed endpoint,
// auto-reconnecting with exponential backoff (1s up to 30s) and exposing
// received ticks on a buffered channel.
type Feed struct {
	url   string
	ticks chan DepthTick
}

// New creates a feed that will dial url once Run is called.
func New(url string) *Feed {
	return &Feed{
		url:   url,
		ticks: make(chan DepthTick, tickBufferSize),
	}
}

// Ticks returns a read-only channel of received depth ticks.
func (f *Feed) Ticks() <-chan DepthTick { return f.ticks }

// Run connects and maintains the connection with auto-reconnect. Blocks
// until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Err(err).Dur("backoff", backoff).Msg("depth feed disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Info().Str("url", f.url).Msg("depth feed connected")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var tick DepthTick
		if err := json.Unmarshal(msg, &tick); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed depth tick")
			continue
		}

		select {
		case f.ticks <- tick:
		default:
			log.Warn().Str("symbol", tick.Symbol).Msg("tick channel full, dropping depth update")
		}
	}
}
