// Package net is the TCP transport that sits in front of the engine:
// an external collaborator per spec.md §1, not part of the matching
// core. It exists only as a thin reference implementation, adapted
// from the teacher's binary wire protocol to carry exact-decimal
// price/quantity fields and the full order model (TIF, expiry).
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"emberbook/internal/common"
	"emberbook/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for its declared field lengths")
	ErrInvalidDecimal     = errors.New("invalid decimal field on the wire")
)

// MessageType identifies an inbound client message.
type MessageType uint8

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	DepthQuery
)

// ReportMessageType identifies an outbound server message.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
	RejectReport
)

// Message is any parsed inbound client message.
type Message interface {
	GetType() MessageType
}

// BaseMessageHeaderLen is the shared 2-byte header every message on
// the wire starts with: a big-endian uint16 type tag written by the
// sender, consumed before any type-specific parsing runs. It carries
// no length field.
const BaseMessageHeaderLen = 2

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, fmt.Errorf("%w: no room for the 2-byte type header", ErrMessageTooShort)
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case DepthQuery:
		return DepthQueryMessage{BaseMessage: BaseMessage{TypeOf: DepthQuery}}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// NewOrderMessage carries everything SubmitRequest needs. Variable
// length fields (symbol, price, quantity, owner) are each prefixed by
// a length byte/uint16 since decimals have no fixed wire width.
type NewOrderMessage struct {
	BaseMessage
	OrderType common.OrderType
	Side      common.Side
	TIF       common.TimeInForce
	Symbol    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Expiry    *time.Time
	Owner     string
}

// Request converts the wire message into an engine submit request.
func (m NewOrderMessage) Request() engine.SubmitRequest {
	return engine.SubmitRequest{
		Symbol:   m.Symbol,
		Side:     m.Side,
		Type:     m.OrderType,
		Quantity: m.Quantity,
		Price:    m.Price,
		TIF:      m.TIF,
		Expiry:   m.Expiry,
	}
}

// Encode serializes a NewOrderMessage for a client to write to the
// wire, including the shared 2-byte type header.
func (m NewOrderMessage) Encode() []byte {
	w := newWriter()
	w.byte(byte(m.OrderType))
	w.byte(byte(m.Side))
	w.byte(byte(m.TIF))
	w.lenPrefixedString8(m.Symbol)
	w.lenPrefixedString16(m.Price.String())
	w.lenPrefixedString16(m.Quantity.String())
	if m.Expiry != nil {
		w.byte(1)
		w.int64(m.Expiry.Unix())
	} else {
		w.byte(0)
	}
	w.lenPrefixedString8(m.Owner)
	return withTypeHeader(NewOrder, w.bytes())
}

// Encode serializes a CancelOrderMessage for the wire.
func (m CancelOrderMessage) Encode() []byte {
	w := newWriter()
	w.lenPrefixedString8(m.OrderID)
	return withTypeHeader(CancelOrder, w.bytes())
}

// EncodeDepthQuery builds the (fieldless) wire form of a depth query.
func EncodeDepthQuery() []byte {
	return withTypeHeader(DepthQuery, nil)
}

func withTypeHeader(t MessageType, body []byte) []byte {
	out := make([]byte, 2, 2+len(body))
	binary.BigEndian.PutUint16(out, uint16(t))
	return append(out, body...)
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	r := newReader(msg)
	m.OrderType = common.OrderType(r.byte())
	m.Side = common.Side(r.byte())
	m.TIF = common.TimeInForce(r.byte())

	var err error
	if m.Symbol, err = r.lenPrefixedString8(); err != nil {
		return NewOrderMessage{}, err
	}

	priceStr, err := r.lenPrefixedString16()
	if err != nil {
		return NewOrderMessage{}, err
	}
	if m.Price, err = decimal.NewFromString(priceStr); err != nil {
		return NewOrderMessage{}, fmt.Errorf("%w: price %q: %v", ErrInvalidDecimal, priceStr, err)
	}

	qtyStr, err := r.lenPrefixedString16()
	if err != nil {
		return NewOrderMessage{}, err
	}
	if m.Quantity, err = decimal.NewFromString(qtyStr); err != nil {
		return NewOrderMessage{}, fmt.Errorf("%w: quantity %q: %v", ErrInvalidDecimal, qtyStr, err)
	}

	hasExpiry, err := r.byteChecked()
	if err != nil {
		return NewOrderMessage{}, err
	}
	if hasExpiry == 1 {
		unixSeconds, err := r.int64()
		if err != nil {
			return NewOrderMessage{}, err
		}
		expiry := time.Unix(unixSeconds, 0).UTC()
		m.Expiry = &expiry
	}

	if m.Owner, err = r.lenPrefixedString8(); err != nil {
		return NewOrderMessage{}, err
	}

	return m, r.err
}

// CancelOrderMessage requests cancellation of a resting order by id.
type CancelOrderMessage struct {
	BaseMessage
	OrderID string
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	r := newReader(msg)
	var err error
	if m.OrderID, err = r.lenPrefixedString8(); err != nil {
		return CancelOrderMessage{}, err
	}
	return m, r.err
}

// DepthQueryMessage asks the server for current book depth; it carries
// no fields of its own. The server logs the number of bid and ask
// levels it sees and sends no reply to the client.
type DepthQueryMessage struct {
	BaseMessage
}

// Report is the wire shape of an execution, rejection, or error
// report sent back to a client.
type Report struct {
	MessageType  ReportMessageType
	Side         common.Side
	Timestamp    time.Time
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	OrderID      string
	Counterparty string
	Err          string
}

// Serialize packs a Report onto the wire: a small fixed header
// followed by length-prefixed variable fields, matching the framing
// style NewOrderMessage uses.
func (r *Report) Serialize() ([]byte, error) {
	w := newWriter()
	w.byte(byte(r.MessageType))
	w.byte(byte(r.Side))
	w.int64(r.Timestamp.Unix())
	w.lenPrefixedString16(r.Price.String())
	w.lenPrefixedString16(r.Quantity.String())
	w.lenPrefixedString8(r.OrderID)
	w.lenPrefixedString16(r.Counterparty)
	w.lenPrefixedString32(r.Err)
	return w.bytes(), nil
}

// ParseReport is the client-side counterpart of Report.Serialize.
func ParseReport(data []byte) (Report, error) {
	r := newReader(data)
	rep := Report{
		MessageType: ReportMessageType(r.byte()),
		Side:        common.Side(r.byte()),
	}
	unixSeconds, err := r.int64()
	if err != nil {
		return Report{}, err
	}
	rep.Timestamp = time.Unix(unixSeconds, 0).UTC()

	priceStr, err := r.lenPrefixedString16()
	if err != nil {
		return Report{}, err
	}
	if rep.Price, err = decimal.NewFromString(priceStr); err != nil {
		return Report{}, fmt.Errorf("%w: price %q: %v", ErrInvalidDecimal, priceStr, err)
	}

	qtyStr, err := r.lenPrefixedString16()
	if err != nil {
		return Report{}, err
	}
	if rep.Quantity, err = decimal.NewFromString(qtyStr); err != nil {
		return Report{}, fmt.Errorf("%w: quantity %q: %v", ErrInvalidDecimal, qtyStr, err)
	}

	if rep.OrderID, err = r.lenPrefixedString8(); err != nil {
		return Report{}, err
	}
	if rep.Counterparty, err = r.lenPrefixedString16(); err != nil {
		return Report{}, err
	}
	if rep.Err, err = r.lenPrefixedString32(); err != nil {
		return Report{}, err
	}
	return rep, r.err
}

// executionReport builds the report sent to one side of a trade.
func executionReport(order *common.Order, counterpartyOwner string, trade common.Trade) Report {
	return Report{
		MessageType:  ExecutionReport,
		Side:         order.Side,
		Timestamp:    trade.Timestamp,
		Price:        trade.Price,
		Quantity:     trade.Quantity,
		OrderID:      order.ID,
		Counterparty: counterpartyOwner,
	}
}

func errorReport(err error) Report {
	return Report{
		MessageType: ErrorReport,
		Timestamp:   time.Now().UTC(),
		Price:       decimal.Zero,
		Quantity:    decimal.Zero,
		Err:         err.Error(),
	}
}
