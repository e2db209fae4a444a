// Package wire implements the binary framed protocol clients and the
// simulator server speak over TCP: NewOrder/CancelOrder/LogBook commands
// and ExecutionReport/ErrorReport replies.
//
// Adapted from the teacher's internal/net/messages.go. The order/trade
// shape is this module's own (common.Order/common.Trade, price ticks
// instead of the teacher's float64 LimitPrice, no AssetType/Ticker
// routing since a session here targets one venue's book at a time), and
// prices travel on the wire as the int64 price_tick rather than a raw
// float64, avoiding the float round-trip ambiguity spec.md §9 warns
// against.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"meridian/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for declared length")
)

// MessageType identifies a client-originated command.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

// ReportMessageType identifies a server-originated reply.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

// Message is any parsed client command.
type Message interface {
	GetType() MessageType
}

const (
	baseHeaderLen         = 2 // MessageType
	newOrderBodyLen       = 4 + 8 + 4 + 1 // order_id + price_tick + quantity + side
	cancelOrderBodyLen    = 4              // order_id
	reportFixedHeaderLen  = 1 + 1 + 8 + 4 + 8 + 4 + 4 + 4 // type + side + timestamp + order_id + price_tick + qty + counterparty_id + err_len
)

// BaseMessage carries the common MessageType header.
type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

// ParseMessage decodes a client-originated command from its wire bytes.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]

	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return LogBookMessage{BaseMessage: BaseMessage{TypeOf: LogBook}}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage is a client request to submit a new order.
type NewOrderMessage struct {
	BaseMessage
	OrderID  uint32
	PriceTick common.PriceTick
	Quantity uint32
	Side     common.Side
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < newOrderBodyLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		OrderID:     binary.BigEndian.Uint32(msg[0:4]),
		PriceTick:   common.PriceTick(int64(binary.BigEndian.Uint64(msg[4:12]))),
		Quantity:    binary.BigEndian.Uint32(msg[12:16]),
		Side:        common.Side(msg[16]),
	}, nil
}

// CancelOrderMessage is a client request to cancel a resident order.
type CancelOrderMessage struct {
	BaseMessage
	OrderID uint32
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < cancelOrderBodyLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		OrderID:     binary.BigEndian.Uint32(msg[0:4]),
	}, nil
}

// LogBookMessage is a client request for a debug book snapshot.
type LogBookMessage struct {
	BaseMessage
}

// Report is a server-originated reply to a client command.
type Report struct {
	MessageType     ReportMessageType
	Side            common.Side
	Timestamp       uint64
	OrderID         uint32
	PriceTick       common.PriceTick
	Quantity        uint32
	CounterpartyID  uint32
	ErrStrLen       uint32
	Err             string
}

// Serialize packs a Report into its wire representation.
func (r *Report) Serialize() []byte {
	totalSize := reportFixedHeaderLen + len(r.Err)
	buf := make([]byte, totalSize)

	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], r.Timestamp)
	binary.BigEndian.PutUint32(buf[10:14], r.OrderID)
	binary.BigEndian.PutUint64(buf[14:22], uint64(int64(r.PriceTick)))
	binary.BigEndian.PutUint32(buf[22:26], r.Quantity)
	binary.BigEndian.PutUint32(buf[26:30], r.CounterpartyID)
	binary.BigEndian.PutUint32(buf[30:34], r.ErrStrLen)
	copy(buf[reportFixedHeaderLen:], r.Err)

	return buf
}

// ExecutionReports builds one report per side of a trade, each addressed
// to the opposite party as its counterparty.
func ExecutionReports(trade common.Trade) (buyerReport, sellerReport []byte) {
	now := uint64(time.Now().UnixNano())
	tick := common.ToTicks(trade.Price)

	buyer := Report{
		MessageType:    ExecutionReport,
		Side:           common.Buy,
		Timestamp:      now,
		OrderID:        trade.BuyOrderID,
		PriceTick:      tick,
		Quantity:       trade.Quantity,
		CounterpartyID: trade.SellOrderID,
	}
	seller := Report{
		MessageType:    ExecutionReport,
		Side:           common.Sell,
		Timestamp:      now,
		OrderID:        trade.SellOrderID,
		PriceTick:      tick,
		Quantity:       trade.Quantity,
		CounterpartyID: trade.BuyOrderID,
	}
	return buyer.Serialize(), seller.Serialize()
}

// ErrorReportBytes builds a single ErrorReport frame wrapping err.
func ErrorReportBytes(err error) []byte {
	errStr := fmt.Sprintf("%v", err)
	report := Report{
		MessageType: ErrorReport,
		Timestamp:   uint64(time.Now().UnixNano()),
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
	return report.Serialize()
}
