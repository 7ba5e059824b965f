package net

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emberbook/internal/common"
)

func TestNewOrderMessage_EncodeParseRoundTrip(t *testing.T) {
	expiry := time.Now().UTC().Truncate(time.Second)
	msg := NewOrderMessage{
		OrderType: common.FOK,
		Side:      common.Sell,
		TIF:       common.GTD,
		Symbol:    "AAPL",
		Price:     decimal.RequireFromString("123.45"),
		Quantity:  decimal.RequireFromString("67.89"),
		Expiry:    &expiry,
		Owner:     "alice",
	}

	parsed, err := parseMessage(msg.Encode())
	require.NoError(t, err)

	got, ok := parsed.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, msg.OrderType, got.OrderType)
	assert.Equal(t, msg.Side, got.Side)
	assert.Equal(t, msg.TIF, got.TIF)
	assert.Equal(t, msg.Symbol, got.Symbol)
	assert.True(t, msg.Price.Equal(got.Price))
	assert.True(t, msg.Quantity.Equal(got.Quantity))
	require.NotNil(t, got.Expiry)
	assert.True(t, expiry.Equal(*got.Expiry))
	assert.Equal(t, msg.Owner, got.Owner)
}

func TestNewOrderMessage_EncodeParseRoundTrip_NoExpiry(t *testing.T) {
	msg := NewOrderMessage{
		OrderType: common.Limit,
		Side:      common.Buy,
		TIF:       common.GTC,
		Symbol:    "MSFT",
		Price:     decimal.RequireFromString("10"),
		Quantity:  decimal.RequireFromString("1"),
		Owner:     "bob",
	}

	parsed, err := parseMessage(msg.Encode())
	require.NoError(t, err)
	got := parsed.(NewOrderMessage)
	assert.Nil(t, got.Expiry)
}

func TestCancelOrderMessage_EncodeParseRoundTrip(t *testing.T) {
	msg := CancelOrderMessage{OrderID: "order-123"}

	parsed, err := parseMessage(msg.Encode())
	require.NoError(t, err)

	got, ok := parsed.(CancelOrderMessage)
	require.True(t, ok)
	assert.Equal(t, "order-123", got.OrderID)
}

func TestParseMessage_UnknownTypeErrors(t *testing.T) {
	_, err := parseMessage([]byte{0xFF, 0xFF})
	assert.ErrorIs(t, err, ErrInvalidMessageType)
}

func TestParseMessage_TooShortErrors(t *testing.T) {
	_, err := parseMessage([]byte{0x00})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestReport_SerializeParseRoundTrip(t *testing.T) {
	ts := time.Now().UTC().Truncate(time.Second)
	report := Report{
		MessageType:  ExecutionReport,
		Side:         common.Sell,
		Timestamp:    ts,
		Price:        decimal.RequireFromString("55.25"),
		Quantity:     decimal.RequireFromString("12"),
		OrderID:      "order-abc",
		Counterparty: "order-xyz",
		Err:          "",
	}

	buf, err := report.Serialize()
	require.NoError(t, err)

	got, err := ParseReport(buf)
	require.NoError(t, err)

	assert.Equal(t, report.MessageType, got.MessageType)
	assert.Equal(t, report.Side, got.Side)
	assert.True(t, ts.Equal(got.Timestamp))
	assert.True(t, report.Price.Equal(got.Price))
	assert.True(t, report.Quantity.Equal(got.Quantity))
	assert.Equal(t, report.OrderID, got.OrderID)
	assert.Equal(t, report.Counterparty, got.Counterparty)
}

func TestErrorReport_CarriesErrString(t *testing.T) {
	report := errorReport(common.ErrInvalidOrder)
	buf, err := report.Serialize()
	require.NoError(t, err)

	got, err := ParseReport(buf)
	require.NoError(t, err)
	assert.Equal(t, ErrorReport, got.MessageType)
	assert.Contains(t, got.Err, "invalid order")
}
