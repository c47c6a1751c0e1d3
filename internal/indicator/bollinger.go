package indicator

// BollingerResult holds the three band series, aligned like SMA
// (length == len(input)-period+1).
type BollingerResult struct {
	Middle []float64 // SMA(period)
	Upper  []float64 // Middle + stddev*mult
	Lower  []float64 // Middle - stddev*mult
}

// BollingerBands computes Bollinger Bands around an SMA middle band.
// A zero-variance window yields upper == middle == lower, never NaN.
// Returns nil if the series is shorter than period.
func BollingerBands(series []float64, period int, mult float64) *BollingerResult {
	if period < 1 || len(series) < period {
		return nil
	}
	middle := SMA(series, period)
	dev := StdDev(series, period)

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for i := range middle {
		half := dev[i] * mult
		upper[i] = middle[i] + half
		lower[i] = middle[i] - half
	}
	return &BollingerResult{Middle: middle, Upper: upper, Lower: lower}
}
