// Package server runs the TCP front end for one OrderBook: it accepts
// client connections, parses wire.Message frames off them via a worker
// pool, and serializes every mutation through a single session handler
// goroutine so the book never observes a partially-updated state (per
// spec.md §5's single-owner OrderBook rule).
//
// Adapted from the teacher's internal/net/server.go: same tomb-supervised
// accept loop and shared worker pool for connections, generalized from the
// teacher's multi-asset Engine to a single Book, and from UUID/string
// order identity to this module's uint32 OrderID. This replaces the
// teacher's unwired gRPC debug-server stub that previously lived at this
// path (it depended on a protocol package and a grpc import neither of
// which this module carries).
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"meridian/internal/common"
	"meridian/internal/wire"
	"meridian/internal/workerpool"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

// ErrClientDoesNotExist is returned when a report is addressed to a
// client address the server no longer has a session for.
var ErrClientDoesNotExist = errors.New("client does not exist")

// Book is the subset of *book.OrderBook the server needs. Declared here
// (rather than importing internal/book directly) so the server package
// has no compile-time dependency on the matching engine's internals.
type Book interface {
	Add(orderID uint32, price decimal.Decimal, quantity uint32, side common.Side) ([]common.Trade, error)
	Cancel(orderID uint32) bool
	LogBook()
}

type clientSession struct {
	conn net.Conn
}

type clientMessage struct {
	clientAddress string
	message       wire.Message
}

// Server is a TCP front end serving a single OrderBook.
type Server struct {
	address string
	port    int
	book    Book

	pool               workerpool.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]clientSession
	clientSessionsLock sync.Mutex
	clientMessages     chan clientMessage

	orderOwnersLock sync.Mutex
	orderOwners     map[uint32]string
}

// New creates a server bound to book, listening on address:port once Run
// is called.
func New(address string, port int, book Book) *Server {
	return &Server{
		address:        address,
		port:           port,
		book:           book,
		pool:           workerpool.New(defaultNWorkers),
		clientSessions: make(map[string]clientSession),
		clientMessages: make(chan clientMessage, 1),
		orderOwners:    make(map[uint32]string),
	}
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is cancelled. It blocks.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.addClientSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// ReportTrade pushes execution reports to both sides of a trade, if both
// are sessions this server owns.
func (s *Server) ReportTrade(trade common.Trade, buyerAddr, sellerAddr string) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	buyer, buyerOk := s.clientSessions[buyerAddr]
	seller, sellerOk := s.clientSessions[sellerAddr]
	if !buyerOk || !sellerOk {
		return ErrClientDoesNotExist
	}

	buyerReport, sellerReport := wire.ExecutionReports(trade)
	if _, err := buyer.conn.Write(buyerReport); err != nil {
		delete(s.clientSessions, buyerAddr)
		return fmt.Errorf("unable to send report: %w", err)
	}
	if _, err := seller.conn.Write(sellerReport); err != nil {
		delete(s.clientSessions, sellerAddr)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// ReportError sends a single ErrorReport frame to a client session.
func (s *Server) ReportError(clientAddress string, cause error) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(wire.ErrorReportBytes(cause)); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.clientMessages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("error handling message")
				s.ReportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch msg.message.GetType() {
	case wire.NewOrder:
		order, ok := msg.message.(wire.NewOrderMessage)
		if !ok {
			return wire.ErrInvalidMessageType
		}
		s.setOrderOwner(order.OrderID, msg.clientAddress)
		trades, err := s.book.Add(order.OrderID, order.PriceTick.ToDecimal(), order.Quantity, order.Side)
		if err != nil {
			log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("error placing order")
			return err
		}
		for _, trade := range trades {
			buyerAddr := s.orderOwner(trade.BuyOrderID)
			sellerAddr := s.orderOwner(trade.SellOrderID)
			if err := s.ReportTrade(trade, buyerAddr, sellerAddr); err != nil {
				log.Error().Err(err).Uint32("buyOrderID", trade.BuyOrderID).Uint32("sellOrderID", trade.SellOrderID).Msg("error reporting trade")
			}
		}
	case wire.CancelOrder:
		order, ok := msg.message.(wire.CancelOrderMessage)
		if !ok {
			return wire.ErrInvalidMessageType
		}
		if !s.book.Cancel(order.OrderID) {
			log.Warn().Uint32("orderID", order.OrderID).Msg("cancel of unknown order")
		}
	case wire.LogBook:
		s.book.LogBook()
	default:
		log.Error().Int("messageType", int(msg.message.GetType())).Msg("invalid message type")
		return wire.ErrInvalidMessageType
	}
	return nil
}

// handleConnection reads exactly one framed message off conn, hands it
// to the session handler, and re-enqueues the connection for its next
// message. Any returned error is fatal to the worker.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return errors.New("improper task type")
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
		}
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Msg("failed setting connection deadline")
		closeConn()
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		closeConn()
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.pool.AddTask(conn) // idle within the deadline: wait for its next message
				return nil
			}
			s.deleteClientSession(conn.RemoteAddr().String())
			closeConn()
			return nil
		}

		message, err := wire.ParseMessage(buffer[:n])
		if err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
			s.deleteClientSession(conn.RemoteAddr().String())
			closeConn()
			return nil
		}

		s.clientMessages <- clientMessage{
			message:       message,
			clientAddress: conn.RemoteAddr().String(),
		}
		s.pool.AddTask(conn)
	}
	return nil
}

func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	s.clientSessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	delete(s.clientSessions, address)
}

func (s *Server) setOrderOwner(orderID uint32, address string) {
	s.orderOwnersLock.Lock()
	defer s.orderOwnersLock.Unlock()
	s.orderOwners[orderID] = address
}

func (s *Server) orderOwner(orderID uint32) string {
	s.orderOwnersLock.Lock()
	defer s.orderOwnersLock.Unlock()
	return s.orderOwners[orderID]
}
