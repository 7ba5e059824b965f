// Package journal implements the engine's snapshot and recovery
// strategy (spec.md §4.7): two newline-delimited JSON side logs plus
// a trade log, fully rewritten after every mutating operation. This
// is the simplicity/durability trade-off spec.md §9 calls out:
// at-most-one-snapshot-behind durability, write amplification
// proportional to book depth.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emberbook/internal/book"
	"emberbook/internal/common"
)

const (
	bidsFile   = "bids.jsonl"
	asksFile   = "asks.jsonl"
	tradesFile = "trades.jsonl"
)

// Recorder owns the three on-disk logs for one symbol's book. External
// processes must not write to these files; the engine is their only
// writer.
type Recorder struct {
	bidsPath   string
	asksPath   string
	tradesPath string
	log        zerolog.Logger
}

// New creates (if necessary) dir and returns a Recorder rooted there.
func New(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating journal directory: %v", common.ErrPersistenceFailure, err)
	}
	return &Recorder{
		bidsPath:   filepath.Join(dir, bidsFile),
		asksPath:   filepath.Join(dir, asksFile),
		tradesPath: filepath.Join(dir, tradesFile),
		log:        log.With().Str("component", "journal").Str("dir", dir).Logger(),
	}, nil
}

// Snapshot rewrites all three logs in full. A failure on any one of
// them is logged by the caller (the engine keeps running on its
// in-memory state regardless); Snapshot itself just reports the error
// up.
func (r *Recorder) Snapshot(bids, asks *book.Side, trades []common.Trade) error {
	if err := r.writeSide(r.bidsPath, bids); err != nil {
		return err
	}
	if err := r.writeSide(r.asksPath, asks); err != nil {
		return err
	}
	return r.writeTrades(trades)
}

func (r *Recorder) writeSide(path string, side *book.Side) error {
	return r.writeAtomic(path, func(enc *json.Encoder) error {
		var encErr error
		side.Scan(func(level *book.PriceLevel) bool {
			for _, o := range level.Orders {
				if encErr = enc.Encode(toOrderRecord(o)); encErr != nil {
					return false
				}
			}
			return true
		})
		return encErr
	})
}

func (r *Recorder) writeTrades(trades []common.Trade) error {
	return r.writeAtomic(r.tradesPath, func(enc *json.Encoder) error {
		for _, t := range trades {
			if err := enc.Encode(toTradeRecord(t)); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAtomic writes to a temp file and renames over path, so a
// crash mid-write never leaves a half-written snapshot in place.
func (r *Recorder) writeAtomic(path string, write func(*json.Encoder) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistenceFailure, err)
	}

	writeErr := write(json.NewEncoder(f))
	if writeErr == nil {
		writeErr = f.Sync()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", common.ErrPersistenceFailure, writeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistenceFailure, err)
	}
	return nil
}

// LoadBids reconstructs resting buy orders from the bid log, in file
// (price-then-arrival) order. Corrupt lines are skipped with a
// warning; a missing or unreadable file yields an empty book side,
// never an error.
func (r *Recorder) LoadBids() []*common.Order {
	return r.loadOrders(r.bidsPath)
}

// LoadAsks is LoadBids for the ask log.
func (r *Recorder) LoadAsks() []*common.Order {
	return r.loadOrders(r.asksPath)
}

func (r *Recorder) loadOrders(path string) []*common.Order {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("path", path).Msg("unable to open snapshot file; starting with an empty side")
		}
		return nil
	}
	defer f.Close()

	var orders []*common.Order
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec orderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.log.Warn().
				Err(fmt.Errorf("%w: %v", common.ErrRecoveryCorruption, err)).
				Int("line", line).
				Str("path", path).
				Msg("skipping corrupt order record")
			continue
		}
		orders = append(orders, rec.toOrder())
	}
	if err := scanner.Err(); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("error reading snapshot file; recovered only the lines read so far")
	}
	return orders
}

// LoadTrades reconstructs the trade journal in execution order.
// Corrupt lines are skipped the same way as LoadBids/LoadAsks.
func (r *Recorder) LoadTrades() []common.Trade {
	f, err := os.Open(r.tradesPath)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("path", r.tradesPath).Msg("unable to open trade log; starting with an empty trade list")
		}
		return nil
	}
	defer f.Close()

	var trades []common.Trade
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec tradeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.log.Warn().
				Err(fmt.Errorf("%w: %v", common.ErrRecoveryCorruption, err)).
				Int("line", line).
				Str("path", r.tradesPath).
				Msg("skipping corrupt trade record")
			continue
		}
		trades = append(trades, rec.toTrade())
	}
	if err := scanner.Err(); err != nil {
		r.log.Warn().Err(err).Str("path", r.tradesPath).Msg("error reading trade log; recovered only the lines read so far")
	}
	return trades
}
