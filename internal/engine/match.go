package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"emberbook/internal/book"
	"emberbook/internal/common"
)

// validate fails with ErrInvalidOrder on field-level problems only.
// It never inspects book state.
func validate(o *common.Order, bookSymbol string) error {
	if o.Original.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive, got %s", common.ErrInvalidOrder, o.Original)
	}
	if requiresPrice(o.Type) && o.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive for %s orders, got %s", common.ErrInvalidOrder, o.Type, o.Price)
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", common.ErrInvalidOrder)
	}
	if bookSymbol != "" && o.Symbol != bookSymbol {
		return fmt.Errorf("%w: symbol %q does not match book %q", common.ErrInvalidOrder, o.Symbol, bookSymbol)
	}
	return nil
}

func requiresPrice(t common.OrderType) bool {
	return t == common.Limit || t == common.IOC || t == common.FOK
}

// expired implements the time-in-force gate. GTC never expires here.
// DAY expires at 23:59:59 UTC of the order's own arrival day. GTD
// expires at its explicit expiry, if any.
func expired(o *common.Order, now time.Time) bool {
	switch o.TIF {
	case common.DAY:
		return now.After(endOfDayUTC(o.Arrival))
	case common.GTD:
		return o.Expiry != nil && now.After(*o.Expiry)
	default:
		return false
	}
}

func endOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// status derives the §6 submit status from an order's post-match
// remaining quantity and how much was filled.
func status(o *common.Order, filled decimal.Decimal) common.OrderStatus {
	switch {
	case o.Remaining.IsZero():
		return common.StatusFilled
	case filled.GreaterThan(decimal.Zero):
		return common.StatusPartial
	case o.Type != common.Limit:
		return common.StatusRejected
	default:
		return common.StatusAddedToBook
	}
}

// dispatch routes a validated, non-expired order into the matcher by
// type. Market orders against an empty opposite side fill zero and
// never rest.
func (b *Book) dispatch(order *common.Order) (decimal.Decimal, error) {
	opposite := b.oppositeSide(order.Side)

	if order.Type == common.Market && opposite.Len() == 0 {
		return decimal.Zero, nil
	}

	return b.match(order, opposite, order.Type == common.FOK)
}

// priceAcceptable implements §4.4's price acceptance rule: market
// orders accept any price; buy limits accept prices at or below their
// limit; sell limits accept prices at or above theirs.
func priceAcceptable(taker *common.Order, levelPrice decimal.Decimal) bool {
	if taker.Type == common.Market {
		return true
	}
	if taker.Side == common.Buy {
		return taker.Price.GreaterThanOrEqual(levelPrice)
	}
	return taker.Price.LessThanOrEqual(levelPrice)
}

// rollbackEntry captures enough state to undo one matched fill: the
// maker's pre-trade remaining quantity, and whether the fill emptied
// it off its level entirely.
type rollbackEntry struct {
	maker       *common.Order
	makerBefore decimal.Decimal
	evicted     bool
}

// match implements §4.4: sweep the opposite side best-to-worst while
// price is acceptable and the taker has remaining quantity, popping
// FIFO heads and recording trades. With allOrNothing set (FOK), the
// whole pass is provisional: if it doesn't fully fill the taker,
// every mutation is undone and zero trades are kept.
func (b *Book) match(taker *common.Order, opposite *book.Side, allOrNothing bool) (decimal.Decimal, error) {
	originalRemaining := taker.Remaining

	var rollback []rollbackEntry
	var trades []common.Trade

	for taker.Remaining.GreaterThan(decimal.Zero) {
		level, ok := opposite.Best()
		if !ok || !priceAcceptable(taker, level.Price) {
			break
		}
		if level.Empty() {
			b.log.Fatal().Msg("invariant violation: empty price level survived to the matching loop")
		}

		maker := level.Orders[0]
		qty := decimal.Min(taker.Remaining, maker.Remaining)

		rollback = append(rollback, rollbackEntry{maker: maker, makerBefore: maker.Remaining})

		taker.Remaining = taker.Remaining.Sub(qty)
		maker.Remaining = maker.Remaining.Sub(qty)

		trades = append(trades, common.Trade{
			Timestamp:     time.Now().UTC(),
			Symbol:        b.symbol,
			Price:         level.Price,
			Quantity:      qty,
			MakerOrderID:  maker.ID,
			TakerOrderID:  taker.ID,
			AggressorSide: taker.Side,
		})

		if maker.Remaining.IsZero() {
			opposite.RemoveHead(level.Price)
			delete(b.index, maker.ID)
			rollback[len(rollback)-1].evicted = true
		}
	}

	filled := originalRemaining.Sub(taker.Remaining)

	if allOrNothing && filled.LessThan(originalRemaining) {
		b.rollback(taker, opposite, rollback, originalRemaining)
		return decimal.Zero, nil
	}

	b.trades = append(b.trades, trades...)

	if b.reporter != nil {
		for _, t := range trades {
			b.reporter.ReportTrade(t)
		}
	}

	if taker.Remaining.GreaterThan(decimal.Zero) && taker.Type == common.Limit {
		own := b.sideFor(taker.Side)
		own.Insert(taker)
		b.index[taker.ID] = taker
	}

	return filled, nil
}

// rollback undoes a failed all-or-nothing pass in reverse execution
// order: restore each maker's pre-trade remaining quantity, and for
// any maker evicted off its level, re-insert it at the head of that
// level (recreating the level if needed) rather than appending it,
// so arrival order is preserved exactly as it was.
func (b *Book) rollback(taker *common.Order, opposite *book.Side, entries []rollbackEntry, originalRemaining decimal.Decimal) {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		entry.maker.Remaining = entry.makerBefore
		if entry.evicted {
			opposite.InsertHead(entry.maker)
			b.index[entry.maker.ID] = entry.maker
		}
	}
	taker.Remaining = originalRemaining
}
