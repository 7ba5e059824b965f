package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an append-only execution record. A trade's price is always
// the maker's resting price at execution.
type Trade struct {
	Timestamp     time.Time
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	MakerOrderID  string
	TakerOrderID  string
	AggressorSide Side
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{symbol=%s price=%s qty=%s maker=%s taker=%s aggressor=%s at=%s}",
		t.Symbol, t.Price, t.Quantity, t.MakerOrderID, t.TakerOrderID,
		t.AggressorSide, t.Timestamp.Format(time.RFC3339),
	)
}

// BBO is the top-of-book snapshot: the best price and the aggregated
// remaining quantity at that price, on each side. A zero Decimal on a
// side's fields means that side is currently empty.
type BBO struct {
	BestBidPrice      decimal.Decimal
	BestBidQuantity   decimal.Decimal
	BestOfferPrice    decimal.Decimal
	BestOfferQuantity decimal.Decimal
}
