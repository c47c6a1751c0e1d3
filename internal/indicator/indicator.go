// Package indicator provides technical indicator calculations over price series.
//
// All indicators are pure functions: given the same input series and
// parameters they produce the same output, hold no state between calls, and
// are safe to call concurrently. When the input is shorter than the required
// warm-up window they return nil; callers check length, they never get an
// error for insufficient data.
//
// Output alignment: a function documents its warm-up; output[i] corresponds
// to input[i+warmup-1].
package indicator

import "math"

// SMA computes the simple moving average over a trailing window.
// Output length is len(series)-period+1; returns nil if the series is shorter
// than period or period < 1.
func SMA(series []float64, period int) []float64 {
	if period < 1 || len(series) < period {
		return nil
	}
	out := make([]float64, 0, len(series)-period+1)
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA computes the exponential moving average seeded with series[0].
// Recurrence: ema[i] = (series[i]-ema[i-1]) * 2/(period+1) + ema[i-1].
// Output length equals the input length; returns nil for an empty series
// or period < 1.
func EMA(series []float64, period int) []float64 {
	if period < 1 || len(series) == 0 {
		return nil
	}
	mult := 2.0 / float64(period+1)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = (series[i]-out[i-1])*mult + out[i-1]
	}
	return out
}

// StdDev computes the population standard deviation over a trailing window.
// Same alignment as SMA: output length is len(series)-period+1.
func StdDev(series []float64, period int) []float64 {
	if period < 1 || len(series) < period {
		return nil
	}
	means := SMA(series, period)
	out := make([]float64, len(means))
	for i := range means {
		sumSq := 0.0
		for j := i; j < i+period; j++ {
			d := series[j] - means[i]
			sumSq += d * d
		}
		out[i] = math.Sqrt(sumSq / float64(period))
	}
	return out
}

// Last returns the final value of a series and true, or 0 and false if empty.
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}
