// Package book implements one side of a price-time priority order
// book: a price-indexed ordered map of FIFO queues, backed by a
// balanced tree for O(log P) access to the best price and O(1)
// work within a price level.
package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"emberbook/internal/common"
)

// PriceLevel is a FIFO queue of resting orders at a single price. The
// head of Orders is the oldest still-resting order at that price.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*common.Order
}

func (l *PriceLevel) Empty() bool { return len(l.Orders) == 0 }

// LevelDepth is a read-only view of a price level's aggregate size,
// used for depth queries.
type LevelDepth struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Side is one side of the book (bids or asks).
type Side struct {
	side common.Side
	tree *btree.BTreeG[*PriceLevel]
}

// New returns an empty book side. Bid sides iterate highest price
// first (best bid = max); ask sides iterate lowest price first (best
// ask = min).
func New(side common.Side) *Side {
	var less func(a, b *PriceLevel) bool
	if side == common.Buy {
		less = func(a, b *PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price.LessThan(b.Price) }
	}
	return &Side{side: side, tree: btree.NewBTreeG(less)}
}

// Insert appends order to the tail of its price level, creating the
// level if it doesn't already exist. O(log P) to locate/create the
// level, O(1) to append.
func (s *Side) Insert(order *common.Order) {
	level := s.levelFor(order.Price)
	level.Orders = append(level.Orders, order)
}

// InsertHead re-inserts order at the head of its price level,
// recreating the level if it was removed. Used only to undo a FOK
// rollback; never reorders the rest of the level.
func (s *Side) InsertHead(order *common.Order) {
	level := s.levelFor(order.Price)
	level.Orders = append([]*common.Order{order}, level.Orders...)
}

func (s *Side) levelFor(price decimal.Decimal) *PriceLevel {
	level, ok := s.tree.Get(&PriceLevel{Price: price})
	if !ok {
		level = &PriceLevel{Price: price}
		s.tree.Set(level)
	}
	return level
}

// Best returns the best non-empty price level, if any.
func (s *Side) Best() (*PriceLevel, bool) {
	return s.tree.Min()
}

// RemoveHead pops the oldest order off the level at price. The level
// is dropped the moment it becomes empty; no empty level persists.
func (s *Side) RemoveHead(price decimal.Decimal) {
	level, ok := s.tree.Get(&PriceLevel{Price: price})
	if !ok || len(level.Orders) == 0 {
		return
	}
	level.Orders = level.Orders[1:]
	if len(level.Orders) == 0 {
		s.tree.Delete(level)
	}
}

// RemoveByID removes a specific resting order from its level by
// identity — the cancellation path, O(k) in level depth. Reports
// whether the order was found.
func (s *Side) RemoveByID(price decimal.Decimal, id string) bool {
	level, ok := s.tree.Get(&PriceLevel{Price: price})
	if !ok {
		return false
	}
	for i, o := range level.Orders {
		if o.ID != id {
			continue
		}
		level.Orders = append(level.Orders[:i:i], level.Orders[i+1:]...)
		if len(level.Orders) == 0 {
			s.tree.Delete(level)
		}
		return true
	}
	return false
}

// Len returns the number of distinct (non-empty) price levels.
func (s *Side) Len() int { return s.tree.Len() }

// Scan visits price levels best-to-worst until iter returns false.
func (s *Side) Scan(iter func(level *PriceLevel) bool) {
	s.tree.Scan(iter)
}

// Depth returns up to n price levels, best-to-worst, with the
// aggregated remaining quantity at each.
func (s *Side) Depth(n int) []LevelDepth {
	out := make([]LevelDepth, 0, n)
	s.tree.Scan(func(level *PriceLevel) bool {
		if len(out) >= n {
			return false
		}
		total := decimal.Zero
		for _, o := range level.Orders {
			total = total.Add(o.Remaining)
		}
		out = append(out, LevelDepth{Price: level.Price, Quantity: total})
		return true
	})
	return out
}
