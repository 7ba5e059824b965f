package book_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emberbook/internal/book"
	"emberbook/internal/common"
)

func order(id string, side common.Side, price, qty string) *common.Order {
	return &common.Order{
		ID:        id,
		Symbol:    "AAPL",
		Side:      side,
		Type:      common.Limit,
		Price:     decimal.RequireFromString(price),
		Original:  decimal.RequireFromString(qty),
		Remaining: decimal.RequireFromString(qty),
		TIF:       common.GTC,
	}
}

func depthPrices(depths []book.LevelDepth) []string {
	out := make([]string, len(depths))
	for i, d := range depths {
		out[i] = d.Price.String()
	}
	return out
}

func TestSide_BidsOrderHighestFirst(t *testing.T) {
	bids := book.New(common.Buy)
	bids.Insert(order("b1", common.Buy, "99", "10"))
	bids.Insert(order("b2", common.Buy, "101", "5"))
	bids.Insert(order("b3", common.Buy, "100", "5"))

	assert.Equal(t, []string{"101", "100", "99"}, depthPrices(bids.Depth(10)))

	best, ok := bids.Best()
	require.True(t, ok)
	assert.Equal(t, "101", best.Price.String())
}

func TestSide_AsksOrderLowestFirst(t *testing.T) {
	asks := book.New(common.Sell)
	asks.Insert(order("a1", common.Sell, "102", "10"))
	asks.Insert(order("a2", common.Sell, "100", "5"))
	asks.Insert(order("a3", common.Sell, "101", "5"))

	assert.Equal(t, []string{"100", "101", "102"}, depthPrices(asks.Depth(10)))
}

func TestSide_InsertPreservesFIFOWithinLevel(t *testing.T) {
	s := book.New(common.Buy)
	s.Insert(order("first", common.Buy, "100", "10"))
	s.Insert(order("second", common.Buy, "100", "20"))

	level, ok := s.Best()
	require.True(t, ok)
	require.Len(t, level.Orders, 2)
	assert.Equal(t, "first", level.Orders[0].ID)
	assert.Equal(t, "second", level.Orders[1].ID)
}

func TestSide_InsertHeadPutsOrderBeforeExisting(t *testing.T) {
	s := book.New(common.Sell)
	s.Insert(order("second", common.Sell, "100", "10"))
	s.InsertHead(order("first", common.Sell, "100", "20"))

	level, ok := s.Best()
	require.True(t, ok)
	require.Len(t, level.Orders, 2)
	assert.Equal(t, "first", level.Orders[0].ID)
	assert.Equal(t, "second", level.Orders[1].ID)
}

func TestSide_RemoveHeadDropsEmptyLevel(t *testing.T) {
	s := book.New(common.Buy)
	s.Insert(order("only", common.Buy, "100", "10"))

	s.RemoveHead(decimal.RequireFromString("100"))

	assert.Equal(t, 0, s.Len())
	_, ok := s.Best()
	assert.False(t, ok)
}

func TestSide_RemoveByIDRemovesFromMiddleOfLevel(t *testing.T) {
	s := book.New(common.Buy)
	s.Insert(order("a", common.Buy, "100", "10"))
	s.Insert(order("b", common.Buy, "100", "20"))
	s.Insert(order("c", common.Buy, "100", "30"))

	require.True(t, s.RemoveByID(decimal.RequireFromString("100"), "b"))

	level, ok := s.Best()
	require.True(t, ok)
	require.Len(t, level.Orders, 2)
	assert.Equal(t, "a", level.Orders[0].ID)
	assert.Equal(t, "c", level.Orders[1].ID)
}

func TestSide_RemoveByIDUnknownIDReportsFalse(t *testing.T) {
	s := book.New(common.Buy)
	s.Insert(order("a", common.Buy, "100", "10"))

	assert.False(t, s.RemoveByID(decimal.RequireFromString("100"), "missing"))
}

func TestSide_DepthAggregatesRemainingQuantityPerLevel(t *testing.T) {
	s := book.New(common.Buy)
	s.Insert(order("a", common.Buy, "100", "10"))
	s.Insert(order("b", common.Buy, "100", "20"))

	depth := s.Depth(10)
	require.Len(t, depth, 1)
	assert.Equal(t, "30", depth[0].Quantity.String())
}

func TestSide_DepthRespectsLimit(t *testing.T) {
	s := book.New(common.Buy)
	s.Insert(order("a", common.Buy, "100", "10"))
	s.Insert(order("b", common.Buy, "99", "10"))
	s.Insert(order("c", common.Buy, "98", "10"))

	assert.Len(t, s.Depth(2), 2)
}
