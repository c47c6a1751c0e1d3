package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing.
//
// The first value is produced after period deltas, so output length is
// len(series)-period and output[i] corresponds to series[i+period].
// When the average loss is zero the value is pinned to 100, so RSI never
// emits NaN or Inf.
func RSI(series []float64, period int) []float64 {
	if period < 1 || len(series) < period+1 {
		return nil
	}

	// Initial averages from the first `period` deltas (SMA seed).
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := series[i] - series[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(series)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	p := float64(period)
	for i := period + 1; i < len(series); i++ {
		delta := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		// Wilder's smoothing: avg = (prevAvg*(period-1) + cur) / period
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
