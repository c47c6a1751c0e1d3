package strategy

import (
	"fmt"

	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// MultiTimeframe requires trend agreement across three timeframes before
// trading against an RSI extreme.
//
// For each timeframe it computes a trend-strength proxy: the change between
// the last two points of the SMA(fast)-SMA(slow) spread. All three proxies
// must exceed trendStrengthThreshold in the same direction (mandatory AND,
// not majority vote), and the base-timeframe RSI must confirm: oversold for
// a buy, overbought for a sell. Higher timeframes are resampled from the
// base candles, so the strategy stays a pure function of its context.
type MultiTimeframe struct{}

// NewMultiTimeframe creates the multi-timeframe confirmation strategy.
func NewMultiTimeframe() *MultiTimeframe { return &MultiTimeframe{} }

func (s *MultiTimeframe) Name() string { return "multi_timeframe" }

func (s *MultiTimeframe) Description() string {
	return "three-timeframe trend agreement with RSI confirmation"
}

func (s *MultiTimeframe) DefaultParameters() Parameters {
	return Parameters{
		"fastSMA":                20,
		"slowSMA":                50,
		"tfFactor2":              4,  // e.g. 1m base → 4m
		"tfFactor3":              16, // e.g. 1m base → 16m
		"trendStrengthThreshold": 0.1,
		"rsiPeriod":              14,
		"oversold":               30,
		"overbought":             70,
		"atrPeriod":              14,
		"stopLossAtr":            2,
		"rewardRatio":            2,
		"riskPerTrade":           0.01,
	}
}

func (s *MultiTimeframe) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
	p := params.Merge(s.DefaultParameters())
	fast, err := p.Period("fastSMA")
	if err != nil {
		return nil, err
	}
	slow, err := p.Period("slowSMA")
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fastSMA %d must be < slowSMA %d", ErrInvalidParameter, fast, slow)
	}
	f2, err := p.Period("tfFactor2")
	if err != nil {
		return nil, err
	}
	f3, err := p.Period("tfFactor3")
	if err != nil {
		return nil, err
	}
	threshold, err := p.Positive("trendStrengthThreshold")
	if err != nil {
		return nil, err
	}
	rsiPeriod, err := p.Period("rsiPeriod")
	if err != nil {
		return nil, err
	}
	oversold, err := p.Value("oversold")
	if err != nil {
		return nil, err
	}
	overbought, err := p.Value("overbought")
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

	frames := [][]model.Candle{
		ctx.Candles,
		resample(ctx.Candles, f2),
		resample(ctx.Candles, f3),
	}
	proxies := make([]float64, 0, 3)
	for _, frame := range frames {
		proxy, ok := trendProxy(model.Closes(frame), fast, slow)
		if !ok {
			return nil, nil // not enough data on some timeframe
		}
		proxies = append(proxies, proxy)
	}

	rsi := indicator.RSI(model.Closes(ctx.Candles), rsiPeriod)
	cur, ok := indicator.Last(rsi)
	if !ok {
		return nil, nil
	}
	price := lastCandle(ctx).Close

	allAbove := proxies[0] > threshold && proxies[1] > threshold && proxies[2] > threshold
	allBelow := proxies[0] < -threshold && proxies[1] < -threshold && proxies[2] < -threshold

	switch {
	case allAbove && cur <= oversold:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideSell {
				return []Signal{exit(s.Name(), model.SideBuy, price, "all timeframes trending up, RSI oversold")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideBuy, atrPeriod, stopMult, rr, risk, "all timeframes trending up, RSI oversold"), nil

	case allBelow && cur >= overbought:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideBuy {
				return []Signal{exit(s.Name(), model.SideSell, price, "all timeframes trending down, RSI overbought")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideSell, atrPeriod, stopMult, rr, risk, "all timeframes trending down, RSI overbought"), nil
	}
	return nil, nil
}

// trendProxy is the change of the SMA(fast)-SMA(slow) spread between the two
// most recent points. ok is false when the series cannot produce two points.
func trendProxy(closes []float64, fast, slow int) (float64, bool) {
	fastSMA := indicator.SMA(closes, fast)
	slowSMA := indicator.SMA(closes, slow)
	if len(slowSMA) < 2 {
		return 0, false
	}
	// SMA outputs are tail-aligned with the input, so align from the end.
	nf, ns := len(fastSMA), len(slowSMA)
	curSpread := fastSMA[nf-1] - slowSMA[ns-1]
	prevSpread := fastSMA[nf-2] - slowSMA[ns-2]
	return curSpread - prevSpread, true
}

// resample aggregates consecutive groups of factor base candles into one.
// The trailing group may be partial; it still only contains past data.
func resample(candles []model.Candle, factor int) []model.Candle {
	if factor <= 1 {
		return candles
	}
	out := make([]model.Candle, 0, (len(candles)+factor-1)/factor)
	for i := 0; i < len(candles); i += factor {
		end := i + factor
		if end > len(candles) {
			end = len(candles)
		}
		agg := candles[i]
		for _, c := range candles[i+1 : end] {
			if c.High > agg.High {
				agg.High = c.High
			}
			if c.Low < agg.Low {
				agg.Low = c.Low
			}
			agg.Close = c.Close
			agg.Volume += c.Volume
		}
		out = append(out, agg)
	}
	return out
}
