package net

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"emberbook/internal/common"
	"emberbook/internal/engine"
)

const (
	maxRecvSize         = 4 * 1024
	defaultNWorkers     = 10
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// clientSession is one connected TCP session.
type clientSession struct {
	conn net.Conn
}

// clientMessage links a parsed message to the connection it arrived
// on, so the session handler can route reports back to the sender
// without re-resolving the address.
type clientMessage struct {
	clientAddress string
	message       Message
}

// Server is a TCP front end for a single-symbol engine.Book: it
// decodes NewOrder/CancelOrder/DepthQuery messages off the wire,
// submits them to the book, and streams ExecutionReport/ErrorReport
// messages back out. It implements engine.Reporter so the book can
// push fills to it the moment they happen.
type Server struct {
	address string
	port    int
	book    *engine.Book

	pool   WorkerPool
	cancel context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]clientSession
	// orderOwner maps a resting order's id to the address of the
	// client session that submitted it, so a later fill can be routed
	// back without the engine knowing anything about transport.
	orderOwner map[string]string

	messages chan clientMessage
	log      zerolog.Logger
}

// New returns a Server bound to address:port, trading against b.
func New(address string, port int, b *engine.Book) *Server {
	return &Server{
		address:    address,
		port:       port,
		book:       b,
		pool:       NewWorkerPool(defaultNWorkers),
		sessions:   make(map[string]clientSession),
		orderOwner: make(map[string]string),
		messages:   make(chan clientMessage, 16),
		log:        log.With().Str("component", "net").Str("symbol", b.Symbol()).Logger(),
	}
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	s.log.Info().Msg("server shutting down")
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
		s.log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			s.log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	s.log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				s.log.Error().Err(err).Msg("error accepting client")
				continue
			}
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// ReportTrade implements engine.Reporter. It is called synchronously
// under the book's lock, so it must never block on anything slower
// than a TCP write with its own deadline.
func (s *Server) ReportTrade(trade common.Trade) {
	s.sessionsLock.Lock()
	makerAddress, makerHasOwner := s.orderOwner[trade.MakerOrderID]
	takerAddress, takerHasOwner := s.orderOwner[trade.TakerOrderID]
	_, makerOk := s.sessions[makerAddress]
	_, takerOk := s.sessions[takerAddress]
	makerOk = makerOk && makerHasOwner
	takerOk = takerOk && takerHasOwner
	s.sessionsLock.Unlock()

	if makerOk {
		s.send(makerAddress, executionReport(&common.Order{ID: trade.MakerOrderID, Side: oppositeOf(trade.AggressorSide)}, trade.TakerOrderID, trade))
	}
	if takerOk {
		s.send(takerAddress, executionReport(&common.Order{ID: trade.TakerOrderID, Side: trade.AggressorSide}, trade.MakerOrderID, trade))
	}
}

func oppositeOf(side common.Side) common.Side {
	if side == common.Buy {
		return common.Sell
	}
	return common.Buy
}

func (s *Server) send(address string, report Report) {
	s.sessionsLock.Lock()
	sess, ok := s.sessions[address]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}

	buf, err := report.Serialize()
	if err != nil {
		s.log.Error().Err(err).Msg("unable to serialize report")
		return
	}
	if err := sess.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("unable to set write deadline; dropping session")
		s.deleteSession(address)
		return
	}
	if _, err := sess.conn.Write(buf); err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("unable to send report; dropping session")
		s.deleteSession(address)
	}
}

func (s *Server) reportError(address string, err error) {
	s.send(address, errorReport(err))
}

// sessionHandler drains parsed messages and acts on them. It runs on
// its own goroutine so connection-reading workers never block on
// engine calls.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.handleMessage(msg); err != nil {
				s.log.Error().Err(err).Str("address", msg.clientAddress).Msg("error handling message")
				s.reportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch msg.message.GetType() {
	case NewOrder:
		order, ok := msg.message.(NewOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		result, err := s.book.Submit(order.Request())
		if err != nil {
			return err
		}

		s.sessionsLock.Lock()
		s.orderOwner[result.OrderID] = msg.clientAddress
		s.sessionsLock.Unlock()

		s.send(msg.clientAddress, submitReport(result))
		return nil

	case CancelOrder:
		order, ok := msg.message.(CancelOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		s.book.Cancel(order.OrderID)
		s.sessionsLock.Lock()
		delete(s.orderOwner, order.OrderID)
		s.sessionsLock.Unlock()
		return nil

	case DepthQuery:
		bids, asks := s.book.Depth(10)
		s.log.Info().
			Int("bid_levels", len(bids)).
			Int("ask_levels", len(asks)).
			Str("address", msg.clientAddress).
			Msg("depth query")
		return nil

	default:
		return ErrInvalidMessageType
	}
}

// submitReport turns an engine.SubmitResult into the wire Report a
// NewOrder submitter gets back immediately, independent of any later
// ReportTrade push for fills against other orders.
func submitReport(result engine.SubmitResult) Report {
	msgType := ExecutionReport
	if result.Status == common.StatusRejected {
		msgType = RejectReport
	}
	return Report{
		MessageType: msgType,
		Timestamp:   time.Now().UTC(),
		Quantity:    result.Filled,
		OrderID:     result.OrderID,
	}
}

// handleConnection reads exactly one message off conn, forwards it to
// the session handler, and re-queues the connection for its next
// message. A read error ends that connection's session; a parse
// failure is reported back to the client and the connection is
// re-queued. Neither is fatal to the pool.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return fmt.Errorf("worker pool received non-connection task: %T", task)
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	if err := conn.SetReadDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
		s.log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed setting read deadline")
		s.deleteSession(conn.RemoteAddr().String())
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		s.deleteSession(conn.RemoteAddr().String())
		return nil
	}

	message, err := parseMessage(buffer[:n])
	if err != nil {
		s.log.Warn().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
		s.reportError(conn.RemoteAddr().String(), err)
		s.pool.AddTask(conn)
		return nil
	}

	s.messages <- clientMessage{clientAddress: conn.RemoteAddr().String(), message: message}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if sess, ok := s.sessions[address]; ok {
		sess.conn.Close()
	}
	delete(s.sessions, address)
}
