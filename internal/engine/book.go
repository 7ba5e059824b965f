// Package engine implements the single-symbol matching core: order
// validation, the time-in-force gate, price-time priority matching
// with FOK rollback, BBO maintenance, and the trade journal. The book
// is single-writer: every exported method that reads or mutates book
// state takes the same mutex, so submit, cancel, and recovery are
// strictly serialized. Symbol and SetReporter take no lock.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"emberbook/internal/book"
	"emberbook/internal/common"
)

// Persister is the subset of internal/journal's Recorder the book
// needs: a full snapshot after every mutation, and a load at startup.
// Declared here (consumer side) so the engine doesn't import the
// journal package directly; journal implements it.
type Persister interface {
	Snapshot(bids, asks *book.Side, trades []common.Trade) error
	LoadBids() []*common.Order
	LoadAsks() []*common.Order
	LoadTrades() []common.Trade
}

// Reporter is notified synchronously, under the book's lock, of every
// trade committed by a match. internal/net implements this to push
// execution reports out to the connected client that owns the resting
// (maker) order; the taker's own owner is recorded only after Submit
// returns, so the taker learns of those fills from its submit report
// instead. It is optional and nil by default so the book is usable
// standalone.
type Reporter interface {
	ReportTrade(trade common.Trade)
}

// Book is a single-symbol limit order book with its matcher, order
// index, BBO, and trade journal.
type Book struct {
	mu sync.Mutex

	symbol string
	bids   *book.Side
	asks   *book.Side
	index  map[string]*common.Order
	trades []common.Trade
	bbo    common.BBO

	journal  Persister
	reporter Reporter
	log      zerolog.Logger
}

// New returns an empty book for symbol. journal may be nil, in which
// case the book never touches disk (useful for tests).
func New(symbol string, journal Persister) *Book {
	return &Book{
		symbol:  symbol,
		bids:    book.New(common.Buy),
		asks:    book.New(common.Sell),
		index:   make(map[string]*common.Order),
		journal: journal,
		log:     log.With().Str("component", "engine").Str("symbol", symbol).Logger(),
	}
}

// Symbol returns the symbol this book matches.
func (b *Book) Symbol() string { return b.symbol }

// SetReporter installs r as the book's trade reporter. Not
// safe to call concurrently with Submit/Cancel/Recover.
func (b *Book) SetReporter(r Reporter) { b.reporter = r }

// SubmitRequest is the caller-supplied half of an inbound order; the
// engine assigns the identifier and, unless Arrival is already set,
// the arrival timestamp.
type SubmitRequest struct {
	Symbol   string
	Side     common.Side
	Type     common.OrderType
	Quantity decimal.Decimal
	Price    decimal.Decimal
	TIF      common.TimeInForce
	Expiry   *time.Time
	// Arrival lets a caller (e.g. a transport layer that queued the
	// message before handing it to the book) stamp the order's true
	// arrival time. Zero means "now".
	Arrival time.Time
}

// SubmitResult is what Submit reports back to the caller.
type SubmitResult struct {
	OrderID string
	Status  common.OrderStatus
	Filled  decimal.Decimal
}

// Submit validates, TIF-gates, and dispatches an inbound order by
// type. It never returns a Go error for a TIF rejection — that is a
// functional outcome (status = rejected), not a failure.
func (b *Book) Submit(req SubmitRequest) (SubmitResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	arrival := req.Arrival
	if arrival.IsZero() {
		arrival = time.Now().UTC()
	} else {
		arrival = arrival.UTC()
	}

	order := &common.Order{
		ID:        uuid.New().String(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Original:  req.Quantity,
		Remaining: req.Quantity,
		Arrival:   arrival,
		TIF:       req.TIF,
		Expiry:    req.Expiry,
	}

	if err := validate(order, b.symbol); err != nil {
		return SubmitResult{}, err
	}

	if expired(order, time.Now().UTC()) {
		b.log.Info().
			Str("order_id", order.ID).
			Stringer("tif", order.TIF).
			Msg("order rejected by time-in-force gate")
		return SubmitResult{OrderID: order.ID, Status: common.StatusRejected}, nil
	}

	filled, err := b.dispatch(order)
	if err != nil {
		return SubmitResult{}, err
	}

	b.recomputeBBO()
	b.persist()

	return SubmitResult{
		OrderID: order.ID,
		Status:  status(order, filled),
		Filled:  filled,
	}, nil
}

// Cancel removes a resting order from the book. Reports false if the
// order is unknown (already filled, already cancelled, or never
// existed) — this is not an error.
func (b *Book) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.index[id]
	if !ok {
		return false
	}

	if !b.sideFor(order.Side).RemoveByID(order.Price, id) {
		b.log.Fatal().
			Str("order_id", id).
			Msg("invariant violation: order present in index but absent from its price level")
	}
	delete(b.index, id)

	b.recomputeBBO()
	b.persist()
	return true
}

// TopOfBook returns the current BBO snapshot.
func (b *Book) TopOfBook() common.BBO {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bbo
}

// Depth returns up to n price levels per side, best-to-worst.
func (b *Book) Depth(n int) (bids, asks []book.LevelDepth) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Depth(n), b.asks.Depth(n)
}

// Trades returns every trade executed since process start (or since
// the most recent recovery).
func (b *Book) Trades() []common.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]common.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Recover reconstructs book state from the journal's persisted files.
// Corrupt records are skipped by the journal itself; Recover just
// wires the surviving orders back into the book and recomputes BBO.
func (b *Book) Recover() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.journal == nil {
		return
	}

	for _, o := range b.journal.LoadBids() {
		b.bids.Insert(o)
		b.index[o.ID] = o
	}
	for _, o := range b.journal.LoadAsks() {
		b.asks.Insert(o)
		b.index[o.ID] = o
	}
	b.trades = b.journal.LoadTrades()

	b.recomputeBBO()
}

func (b *Book) sideFor(s common.Side) *book.Side {
	if s == common.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeSide(s common.Side) *book.Side {
	if s == common.Buy {
		return b.asks
	}
	return b.bids
}

func (b *Book) recomputeBBO() {
	bbo := common.BBO{}
	if level, ok := b.bids.Best(); ok {
		bbo.BestBidPrice = level.Price
		bbo.BestBidQuantity = sumRemaining(level)
	}
	if level, ok := b.asks.Best(); ok {
		bbo.BestOfferPrice = level.Price
		bbo.BestOfferQuantity = sumRemaining(level)
	}
	b.bbo = bbo
}

func sumRemaining(level *book.PriceLevel) decimal.Decimal {
	total := decimal.Zero
	for _, o := range level.Orders {
		total = total.Add(o.Remaining)
	}
	return total
}

func (b *Book) persist() {
	if b.journal == nil {
		return
	}
	if err := b.journal.Snapshot(b.bids, b.asks, b.trades); err != nil {
		b.log.Error().Err(err).Msg("failed to persist snapshot; in-memory state remains authoritative")
	}
}
