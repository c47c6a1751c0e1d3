package indicator

import (
	"math"

	"strategy-engine/internal/model"
)

// TrueRange computes the true range series. The first element uses high-low
// only (no previous close); output length equals the input length.
func TrueRange(candles []model.Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}
	out := make([]float64, len(candles))
	out[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the Average True Range, EMA-smoothed over period.
// Output length equals the input length; returns nil if the candle slice is
// shorter than period.
func ATR(candles []model.Candle, period int) []float64 {
	if period < 1 || len(candles) < period {
		return nil
	}
	return EMA(TrueRange(candles), period)
}
