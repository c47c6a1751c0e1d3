// Package replay turns stored historical candles back into a tick stream at
// configurable speed, so the live alert pipeline can be exercised without a
// market-data connection.
package replay

import (
	"context"
	"log"
	"sort"
	"time"

	"strategy-engine/internal/model"
)

// CandleSource reads stored candles for one symbol/timeframe, ordered
// ascending by timestamp.
type CandleSource interface {
	ReadCandles(symbol, timeframe string, fromTS int64) ([]model.Candle, error)
}

// Replayer reads historical candles and replays their closes as ticks.
type Replayer struct {
	source CandleSource
}

// New creates a Replayer backed by a candle source.
func New(source CandleSource) *Replayer {
	return &Replayer{source: source}
}

// Run replays all candles for the given symbols, emitting one tick per
// candle close into outCh. speed controls the playback rate: 1.0 =
// real-time, 10.0 = 10x, 0 = as fast as possible. fromTS filters candles to
// those after this Unix timestamp (0 = all).
func (r *Replayer) Run(ctx context.Context, symbols []string, timeframe string, fromTS int64, speed float64, outCh chan<- model.Tick) error {
	var all []model.Candle
	for _, sym := range symbols {
		candles, err := r.source.ReadCandles(sym, timeframe, fromTS)
		if err != nil {
			return err
		}
		all = append(all, candles...)
	}
	if len(all) == 0 {
		log.Println("[replay] no candles found")
		return nil
	}

	// Interleave symbols chronologically.
	sort.SliceStable(all, func(i, j int) bool { return all[i].TS.Before(all[j].TS) })

	log.Printf("[replay] loaded %d candles across %d symbols, speed=%.1fx", len(all), len(symbols), speed)

	var prevTS time.Time
	emitted := 0
	for _, c := range all {
		select {
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d ticks", emitted)
			return ctx.Err()
		default:
		}

		// Simulate time gaps between candles.
		if speed > 0 && !prevTS.IsZero() {
			gap := c.TS.Sub(prevTS)
			if gap > 0 {
				scaledGap := time.Duration(float64(gap) / speed)
				// Cap max sleep to avoid very long waits
				if scaledGap > 5*time.Second {
					scaledGap = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaledGap):
				}
			}
		}
		prevTS = c.TS

		outCh <- model.Tick{Symbol: c.Symbol, Price: c.Close, Volume: c.Volume, TS: c.TS}
		emitted++
	}

	log.Printf("[replay] completed: %d ticks replayed", emitted)
	return nil
}
