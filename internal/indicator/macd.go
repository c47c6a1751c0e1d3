package indicator

// MACDResult holds the three MACD output series, all aligned with the input
// (length == len(input)).
type MACDResult struct {
	Line      []float64 // EMA(fast) - EMA(slow)
	Signal    []float64 // EMA(Line, signalPeriod)
	Histogram []float64 // Line - Signal
}

// MACD computes Moving Average Convergence Divergence.
// Returns nil if the series is shorter than the slow period.
func MACD(series []float64, fast, slow, signal int) *MACDResult {
	if fast < 1 || slow < 1 || signal < 1 || len(series) < slow {
		return nil
	}
	fastEMA := EMA(series, fast)
	slowEMA := EMA(series, slow)

	line := make([]float64, len(series))
	for i := range series {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(line, signal)

	hist := make([]float64, len(series))
	for i := range series {
		hist[i] = line[i] - sig[i]
	}
	return &MACDResult{Line: line, Signal: sig, Histogram: hist}
}
