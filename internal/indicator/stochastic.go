package indicator

import "strategy-engine/internal/model"

// Stochastic computes the %K stochastic oscillator over a trailing window:
// %K = (close - lowestLow) / (highestHigh - lowestLow) * 100.
// A flat window (highestHigh == lowestLow) yields 50, never NaN.
// Output length is len(candles)-period+1; returns nil if too short.
func Stochastic(candles []model.Candle, period int) []float64 {
	if period < 1 || len(candles) < period {
		return nil
	}
	out := make([]float64, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		lo := candles[i-period+1].Low
		hi := candles[i-period+1].High
		for j := i - period + 2; j <= i; j++ {
			if candles[j].Low < lo {
				lo = candles[j].Low
			}
			if candles[j].High > hi {
				hi = candles[j].High
			}
		}
		if hi == lo {
			out = append(out, 50.0)
			continue
		}
		out = append(out, (candles[i].Close-lo)/(hi-lo)*100.0)
	}
	return out
}
