package common

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order: buy or sell.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

func (s Side) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Side) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return fmt.Errorf("common: unknown side %q", str)
	}
	return nil
}

// OrderType selects how an order is matched: at the market, at a
// limit price, immediate-or-cancel, or fill-or-kill.
type OrderType int

const (
	Market OrderType = iota
	Limit
	IOC
	FOK
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	default:
		return "unknown"
	}
}

func (t OrderType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *OrderType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "market":
		*t = Market
	case "limit":
		*t = Limit
	case "ioc":
		*t = IOC
	case "fok":
		*t = FOK
	default:
		return fmt.Errorf("common: unknown order type %q", str)
	}
	return nil
}

// TimeInForce is the lifetime policy of a resting limit order.
type TimeInForce int

const (
	GTC TimeInForce = iota
	DAY
	GTD
)

func (f TimeInForce) String() string {
	switch f {
	case GTC:
		return "GTC"
	case DAY:
		return "DAY"
	case GTD:
		return "GTD"
	default:
		return "unknown"
	}
}

func (f TimeInForce) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

func (f *TimeInForce) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "GTC":
		*f = GTC
	case "DAY":
		*f = DAY
	case "GTD":
		*f = GTD
	default:
		return fmt.Errorf("common: unknown time-in-force %q", str)
	}
	return nil
}

// OrderStatus is the outcome reported back to the submitter of an
// inbound order.
type OrderStatus string

const (
	StatusFilled      OrderStatus = "filled"
	StatusPartial     OrderStatus = "partial"
	StatusRejected    OrderStatus = "rejected"
	StatusAddedToBook OrderStatus = "added_to_book"
)

// Order is a single order tracked by the book, from intake through
// fill or cancellation. Price and quantity are exact decimals; the
// engine never performs binary floating point arithmetic on them.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Type      OrderType
	Price     decimal.Decimal
	Original  decimal.Decimal
	Remaining decimal.Decimal
	Arrival   time.Time
	TIF       TimeInForce
	Expiry    *time.Time
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"Order{id=%s symbol=%s side=%s type=%s price=%s qty=%s/%s tif=%s arrival=%s}",
		o.ID, o.Symbol, o.Side, o.Type, o.Price,
		o.Remaining, o.Original, o.TIF, o.Arrival.Format(time.RFC3339),
	)
}
