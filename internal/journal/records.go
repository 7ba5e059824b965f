package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"emberbook/internal/common"
)

// orderRecord is the on-disk shape of a resting order: exactly the
// Order attributes from spec.md §3, with decimals serialized as JSON
// strings (decimal.Decimal's default MarshalJSON) to avoid float loss.
type orderRecord struct {
	OrderID   string             `json:"order_id"`
	Symbol    string             `json:"symbol"`
	Side      common.Side        `json:"side"`
	Type      common.OrderType   `json:"type"`
	Price     decimal.Decimal    `json:"price"`
	Original  decimal.Decimal    `json:"original_quantity"`
	Remaining decimal.Decimal    `json:"remaining_quantity"`
	Arrival   time.Time          `json:"arrival_timestamp"`
	TIF       common.TimeInForce `json:"time_in_force"`
	Expiry    *time.Time         `json:"expiry_timestamp,omitempty"`
}

func toOrderRecord(o *common.Order) orderRecord {
	return orderRecord{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		Type:      o.Type,
		Price:     o.Price,
		Original:  o.Original,
		Remaining: o.Remaining,
		Arrival:   o.Arrival,
		TIF:       o.TIF,
		Expiry:    o.Expiry,
	}
}

func (r orderRecord) toOrder() *common.Order {
	return &common.Order{
		ID:        r.OrderID,
		Symbol:    r.Symbol,
		Side:      r.Side,
		Type:      r.Type,
		Price:     r.Price,
		Original:  r.Original,
		Remaining: r.Remaining,
		Arrival:   r.Arrival,
		TIF:       r.TIF,
		Expiry:    r.Expiry,
	}
}

// tradeRecord is the on-disk shape of a trade: exactly the Trade
// attributes from spec.md §3.
type tradeRecord struct {
	Timestamp     time.Time       `json:"timestamp"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	MakerOrderID  string          `json:"maker_order_id"`
	TakerOrderID  string          `json:"taker_order_id"`
	AggressorSide common.Side     `json:"aggressor_side"`
}

func toTradeRecord(t common.Trade) tradeRecord {
	return tradeRecord{
		Timestamp:     t.Timestamp,
		Symbol:        t.Symbol,
		Price:         t.Price,
		Quantity:      t.Quantity,
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		AggressorSide: t.AggressorSide,
	}
}

func (r tradeRecord) toTrade() common.Trade {
	return common.Trade{
		Timestamp:     r.Timestamp,
		Symbol:        r.Symbol,
		Price:         r.Price,
		Quantity:      r.Quantity,
		MakerOrderID:  r.MakerOrderID,
		TakerOrderID:  r.TakerOrderID,
		AggressorSide: r.AggressorSide,
	}
}
