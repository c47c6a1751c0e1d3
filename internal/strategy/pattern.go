package strategy

import (
	"math"

	"strategy-engine/internal/model"
)

// PatternRecognition detects chart patterns from local peaks and troughs
// over a lookback window: head-and-shoulders, inverse head-and-shoulders,
// double top and double bottom.
//
// Detection is heuristic (fractal pivots plus symmetry tolerances), best
// effort rather than statistically validated. Shoulder symmetry tolerance
// defaults to 10% of the left shoulder; double top/bottom tolerance to 2%.
type PatternRecognition struct{}

// NewPatternRecognition creates the pattern recognition strategy.
func NewPatternRecognition() *PatternRecognition { return &PatternRecognition{} }

func (s *PatternRecognition) Name() string { return "pattern_recognition" }

func (s *PatternRecognition) Description() string {
	return "head-and-shoulders and double top/bottom pivot patterns"
}

func (s *PatternRecognition) DefaultParameters() Parameters {
	return Parameters{
		"lookback":          40,
		"pivotStrength":     2, // bars on each side that must not exceed a pivot
		"shoulderTolerance": 0.10,
		"doubleTolerance":   0.02,
		"atrPeriod":         14,
		"stopLossAtr":       2,
		"rewardRatio":       2,
		"riskPerTrade":      0.01,
	}
}

// pivot is one local extreme in the lookback window.
type pivot struct {
	idx   int
	price float64
	high  bool // peak if true, trough if false
}

func (s *PatternRecognition) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
	p := params.Merge(s.DefaultParameters())
	lookback, err := p.Period("lookback")
	if err != nil {
		return nil, err
	}
	strength, err := p.Period("pivotStrength")
	if err != nil {
		return nil, err
	}
	shoulderTol, err := p.Positive("shoulderTolerance")
	if err != nil {
		return nil, err
	}
	doubleTol, err := p.Positive("doubleTolerance")
	if err != nil {
		return nil, err
	}
	atrPeriod, err := p.Period("atrPeriod")
	if err != nil {
		return nil, err
	}
	stopMult, err := p.Positive("stopLossAtr")
	if err != nil {
		return nil, err
	}
	rr, err := p.Positive("rewardRatio")
	if err != nil {
		return nil, err
	}
	risk, err := p.Positive("riskPerTrade")
	if err != nil {
		return nil, err
	}

	if len(ctx.Candles) < lookback {
		return nil, nil
	}
	window := ctx.Candles[len(ctx.Candles)-lookback:]
	pivots := fractalPivots(window, strength)

	side, reason := classifyPattern(pivots, shoulderTol, doubleTol)
	if side == "" {
		return nil, nil
	}
	price := lastCandle(ctx).Close
	if ctx.Position != nil {
		if ctx.Position.Side != side {
			return []Signal{exit(s.Name(), side, price, reason)}, nil
		}
		return nil, nil
	}
	return protectiveEntry(ctx, s.Name(), side, atrPeriod, stopMult, rr, risk, reason), nil
}

// fractalPivots extracts local extremes: bar i is a peak if its high is the
// maximum over [i-k, i+k], a trough if its low is the minimum.
func fractalPivots(candles []model.Candle, k int) []pivot {
	if len(candles) < 2*k+1 {
		return nil
	}
	out := make([]pivot, 0, len(candles)/4)
	for i := k; i < len(candles)-k; i++ {
		peak, trough := true, true
		for j := i - k; j <= i+k; j++ {
			if candles[j].High > candles[i].High {
				peak = false
			}
			if candles[j].Low < candles[i].Low {
				trough = false
			}
			if !peak && !trough {
				break
			}
		}
		if peak {
			out = append(out, pivot{idx: i, price: candles[i].High, high: true})
		} else if trough {
			out = append(out, pivot{idx: i, price: candles[i].Low, high: false})
		}
	}
	return out
}

// classifyPattern inspects the most recent pivots and returns the trade
// direction implied by the first matching pattern, most-specific first.
func classifyPattern(pivots []pivot, shoulderTol, doubleTol float64) (model.Side, string) {
	peaks := filterPivots(pivots, true)
	troughs := filterPivots(pivots, false)

	// Head and shoulders: three peaks, middle the highest, shoulders within
	// tolerance of the left shoulder.
	if l, h, r, ok := lastThree(peaks); ok {
		if h > l && h > r && math.Abs(r-l) <= shoulderTol*l {
			return model.SideSell, "head and shoulders"
		}
	}
	if l, h, r, ok := lastThree(troughs); ok {
		if h < l && h < r && math.Abs(r-l) <= shoulderTol*l {
			return model.SideBuy, "inverse head and shoulders"
		}
	}

	// Double top/bottom: two latest same-kind pivots within tolerance.
	if a, b, ok := lastTwo(peaks); ok && math.Abs(b-a) <= doubleTol*a {
		return model.SideSell, "double top"
	}
	if a, b, ok := lastTwo(troughs); ok && math.Abs(b-a) <= doubleTol*a {
		return model.SideBuy, "double bottom"
	}
	return "", ""
}

func filterPivots(pivots []pivot, high bool) []float64 {
	var out []float64
	for _, pv := range pivots {
		if pv.high == high {
			out = append(out, pv.price)
		}
	}
	return out
}

func lastTwo(vals []float64) (a, b float64, ok bool) {
	if len(vals) < 2 {
		return 0, 0, false
	}
	return vals[len(vals)-2], vals[len(vals)-1], true
}

func lastThree(vals []float64) (a, b, c float64, ok bool) {
	if len(vals) < 3 {
		return 0, 0, 0, false
	}
	return vals[len(vals)-3], vals[len(vals)-2], vals[len(vals)-1], true
}
