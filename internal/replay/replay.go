// Package replay reads historical market-data snapshots from CSV and
// feeds them into a venue's order book as synthetic resting orders, for
// offline backtesting of the router and market maker against recorded
// data instead of a live feed.
//
// The CSV format (header: timestamp,symbol,bid,ask,bid_size,ask_size,
// last_price,volume) is spec.md §6's market-data ingest format, read
// here with the standard library's encoding/csv. No third-party CSV
// library appears anywhere in the retrieval pack (see DESIGN.md), so
// this is one of the ambient-stack pieces built on the standard library
// rather than an ecosystem dependency (cmd/client's flag parsing is the
// other).
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"meridian/internal/book"
	"meridian/internal/common"
)

// Row is one parsed, filtered record from the CSV.
type Row struct {
	Timestamp int64
	Symbol    string
	Bid       float64
	Ask       float64
	BidSize   uint32
	AskSize   uint32
	LastPrice float64
	Volume    float64
}

var expectedHeader = []string{
	"timestamp", "symbol", "bid", "ask", "bid_size", "ask_size", "last_price", "volume",
}

// ReadRows parses r as the market-data CSV format and returns every row
// satisfying bid>0 && ask>0 && last_price>0 (spec.md §6); other rows are
// silently skipped, matching the reference driver's ingest filter.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(expectedHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range expectedHeader {
		if i >= len(header) || header[i] != want {
			return nil, fmt.Errorf("unexpected header column %d: got %q want %q", i, header[i], want)
		}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("parse row: %w", err)
		}
		if row.Bid > 0 && row.Ask > 0 && row.LastPrice > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseRow(record []string) (Row, error) {
	timestamp, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("timestamp: %w", err)
	}
	bid, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return Row{}, fmt.Errorf("bid: %w", err)
	}
	ask, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return Row{}, fmt.Errorf("ask: %w", err)
	}
	bidSize, err := strconv.ParseUint(record[4], 10, 32)
	if err != nil {
		return Row{}, fmt.Errorf("bid_size: %w", err)
	}
	askSize, err := strconv.ParseUint(record[5], 10, 32)
	if err != nil {
		return Row{}, fmt.Errorf("ask_size: %w", err)
	}
	lastPrice, err := strconv.ParseFloat(record[6], 64)
	if err != nil {
		return Row{}, fmt.Errorf("last_price: %w", err)
	}
	volume, err := strconv.ParseFloat(record[7], 64)
	if err != nil {
		return Row{}, fmt.Errorf("volume: %w", err)
	}

	return Row{
		Timestamp: timestamp,
		Symbol:    record[1],
		Bid:       bid,
		Ask:       ask,
		BidSize:   uint32(bidSize),
		AskSize:   uint32(askSize),
		LastPrice: lastPrice,
		Volume:    volume,
	}, nil
}

// Apply replaces ob's synthetic top-of-book with row's bid/ask, using
// startID and startID+1 as the synthetic order ids. Callers replaying a
// sequence of rows should call Cancel on the prior ids (or use a fresh
// OrderBook per row) to avoid accumulating stale synthetic resting
// orders; see feed.Applier for the stateful version of this pattern.
func Apply(ob *book.OrderBook, row Row, startID uint32) ([]common.Trade, error) {
	var trades []common.Trade

	bidTrades, err := ob.Add(startID, decimal.NewFromFloat(row.Bid), row.BidSize, common.Buy)
	if err != nil {
		return nil, fmt.Errorf("apply bid: %w", err)
	}
	trades = append(trades, bidTrades...)

	askTrades, err := ob.Add(startID+1, decimal.NewFromFloat(row.Ask), row.AskSize, common.Sell)
	if err != nil {
		return nil, fmt.Errorf("apply ask: %w", err)
	}
	trades = append(trades, askTrades...)

	return trades, nil
}
