// Command client is a CLI for submitting orders to a running simulator
// over the wire protocol and printing execution reports as they arrive.
//
// Adapted from the teacher's cmd/client/client.go: same flag-parsed
// place/cancel/log actions and background report reader, regrounded on
// this module's internal/wire framing (uint32 OrderID, int64 price
// ticks, no ticker/asset routing since a connection targets one venue).
// flag is the standard library's CLI parser; no third-party
// flag-parsing library appears anywhere in the retrieval pack, so this
// is one of the ambient-stack pieces built on the standard library (see
// DESIGN.md).
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"meridian/internal/common"
	"meridian/internal/wire"
)

const reportFixedHeaderLen = 1 + 1 + 8 + 4 + 8 + 4 + 4 + 4

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the simulator's wire protocol server")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel', 'log']")

	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	price := flag.Float64("price", 100.0, "limit price")
	qtyStr := flag.String("qty", "10", "quantity or comma-separated list (e.g. 10,20,50)")
	orderID := flag.Uint("order-id", 0, "order id to submit (place) or cancel")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	switch strings.ToLower(*action) {
	case "place":
		quantities := parseQuantities(*qtyStr)
		id := uint32(*orderID)
		for _, q := range quantities {
			if err := sendPlaceOrder(conn, id, *price, uint32(q), side); err != nil {
				log.Printf("failed to place order (qty: %d): %v", q, err)
			} else {
				fmt.Printf("-> sent %s order: id=%d qty=%d @ %.2f\n", strings.ToUpper(*sideStr), id, q, *price)
			}
			id++
			time.Sleep(5 * time.Millisecond)
		}
	case "cancel":
		if err := sendCancelOrder(conn, uint32(*orderID)); err != nil {
			log.Printf("failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> sent cancel request for order id: %d\n", *orderID)
		}
	case "log":
		if err := sendLog(conn); err != nil {
			log.Printf("failed to send log request: %v", err)
		} else {
			fmt.Println("-> sent log request")
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (press ctrl+c to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	parts := strings.Split(input, ",")
	var result []uint64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 32); err == nil {
			result = append(result, val)
		} else {
			log.Printf("warning: invalid quantity %q, skipping", p)
		}
	}
	return result
}

func sendPlaceOrder(conn net.Conn, orderID uint32, price float64, qty uint32, side common.Side) error {
	buf := make([]byte, 2+4+8+4+1)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.NewOrder))
	binary.BigEndian.PutUint32(buf[2:6], orderID)
	tick := common.ToTicks(decimal.NewFromFloat(price))
	binary.BigEndian.PutUint64(buf[6:14], uint64(int64(tick)))
	binary.BigEndian.PutUint32(buf[14:18], qty)
	buf[18] = byte(side)

	_, err := conn.Write(buf)
	return err
}

func sendCancelOrder(conn net.Conn, orderID uint32) error {
	buf := make([]byte, 2+4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.CancelOrder))
	binary.BigEndian.PutUint32(buf[2:6], orderID)

	_, err := conn.Write(buf)
	return err
}

func sendLog(conn net.Conn) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.LogBook))
	_, err := conn.Write(buf)
	return err
}

// readReports continuously reads and parses Report frames from the server.
func readReports(conn net.Conn) {
	for {
		header := make([]byte, reportFixedHeaderLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		msgType := wire.ReportMessageType(header[0])
		side := common.Side(header[1])
		orderID := binary.BigEndian.Uint32(header[10:14])
		tick := common.PriceTick(int64(binary.BigEndian.Uint64(header[14:22])))
		qty := binary.BigEndian.Uint32(header[22:26])
		counterpartyID := binary.BigEndian.Uint32(header[26:30])
		errStrLen := binary.BigEndian.Uint32(header[30:34])

		var errStr string
		if errStrLen > 0 {
			errBuf := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, errBuf); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			errStr = string(errBuf)
		}

		if msgType == wire.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] %s\n", errStr)
			continue
		}

		price := tick.ToDecimal()
		fmt.Printf("\n[EXECUTION] %s order=%d qty=%d price=%s vs order=%d\n",
			side.String(), orderID, qty, price.String(), counterpartyID)
	}
}
