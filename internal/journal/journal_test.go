package journal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emberbook/internal/book"
	"emberbook/internal/common"
	"emberbook/internal/journal"
)

func TestSnapshot_RoundTripsRestingOrdersAndTrades(t *testing.T) {
	dir := t.TempDir()
	rec, err := journal.New(dir)
	require.NoError(t, err)

	bids := book.New(common.Buy)
	bids.Insert(&common.Order{
		ID: "bid-1", Symbol: "AAPL", Side: common.Buy, Type: common.Limit,
		Price: decimal.RequireFromString("100.00"), Original: decimal.RequireFromString("10"),
		Remaining: decimal.RequireFromString("10"), Arrival: time.Now().UTC(), TIF: common.GTC,
	})
	asks := book.New(common.Sell)
	asks.Insert(&common.Order{
		ID: "ask-1", Symbol: "AAPL", Side: common.Sell, Type: common.Limit,
		Price: decimal.RequireFromString("101.00"), Original: decimal.RequireFromString("5"),
		Remaining: decimal.RequireFromString("5"), Arrival: time.Now().UTC(), TIF: common.GTC,
	})
	trades := []common.Trade{{
		Timestamp: time.Now().UTC(), Symbol: "AAPL",
		Price: decimal.RequireFromString("100.50"), Quantity: decimal.RequireFromString("3"),
		MakerOrderID: "ask-1", TakerOrderID: "bid-1", AggressorSide: common.Buy,
	}}

	require.NoError(t, rec.Snapshot(bids, asks, trades))

	loadedBids := rec.LoadBids()
	require.Len(t, loadedBids, 1)
	assert.Equal(t, "bid-1", loadedBids[0].ID)
	assert.Equal(t, "100", loadedBids[0].Price.String())

	loadedAsks := rec.LoadAsks()
	require.Len(t, loadedAsks, 1)
	assert.Equal(t, "ask-1", loadedAsks[0].ID)

	loadedTrades := rec.LoadTrades()
	require.Len(t, loadedTrades, 1)
	assert.Equal(t, "3", loadedTrades[0].Quantity.String())
	assert.Equal(t, common.Buy, loadedTrades[0].AggressorSide)
}

func TestSnapshot_OverwritesPreviousSnapshotInFull(t *testing.T) {
	dir := t.TempDir()
	rec, err := journal.New(dir)
	require.NoError(t, err)

	firstBids := book.New(common.Buy)
	firstBids.Insert(&common.Order{
		ID: "first", Symbol: "AAPL", Side: common.Buy, Type: common.Limit,
		Price: decimal.RequireFromString("100"), Original: decimal.RequireFromString("10"),
		Remaining: decimal.RequireFromString("10"), TIF: common.GTC,
	})
	require.NoError(t, rec.Snapshot(firstBids, book.New(common.Sell), nil))
	require.Len(t, rec.LoadBids(), 1)

	emptyBids := book.New(common.Buy)
	require.NoError(t, rec.Snapshot(emptyBids, book.New(common.Sell), nil))
	assert.Empty(t, rec.LoadBids())
}

func TestLoadOrders_MissingFileYieldsEmptySliceNotError(t *testing.T) {
	dir := t.TempDir()
	rec, err := journal.New(dir)
	require.NoError(t, err)

	assert.Empty(t, rec.LoadBids())
	assert.Empty(t, rec.LoadAsks())
	assert.Empty(t, rec.LoadTrades())
}

func TestLoadOrders_SkipsCorruptLinesAndKeepsGoodOnes(t *testing.T) {
	dir := t.TempDir()
	rec, err := journal.New(dir)
	require.NoError(t, err)

	good := &common.Order{
		ID: "good", Symbol: "AAPL", Side: common.Buy, Type: common.Limit,
		Price: decimal.RequireFromString("100"), Original: decimal.RequireFromString("10"),
		Remaining: decimal.RequireFromString("10"), TIF: common.GTC,
	}
	bids := book.New(common.Buy)
	bids.Insert(good)
	require.NoError(t, rec.Snapshot(bids, book.New(common.Sell), nil))

	// Corrupt the file in place by appending a malformed line, bypassing
	// Recorder's own atomic-write path to simulate on-disk corruption.
	path := filepath.Join(dir, "bids.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not valid json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	loaded := rec.LoadBids()
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].ID)
}
