package strategy

import (
	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// SentimentWeighted gates technical entries on an external sentiment feed.
//
// A buy needs the bullish mention fraction and the mention-volume ratio over
// their thresholds plus technical confirmation (RSI not overbought, MACD
// histogram positive); a sell mirrors that with the bearish fraction. The
// take-profit distance widens with sentiment strength: ATR * (2 + strength*2).
// Without a sentiment snapshot in the context the strategy stays silent.
type SentimentWeighted struct{}

// NewSentimentWeighted creates the sentiment-weighted strategy.
func NewSentimentWeighted() *SentimentWeighted { return &SentimentWeighted{} }

func (s *SentimentWeighted) Name() string { return "sentiment_weighted" }

func (s *SentimentWeighted) Description() string {
	return "sentiment-gated entries with technical confirmation"
}

func (s *SentimentWeighted) DefaultParameters() Parameters {
	return Parameters{
		"minSentiment":   0.6, // required bullish/bearish fraction
		"minVolumeRatio": 1.5,
		"rsiPeriod":      14,
		"oversold":       30,
		"overbought":     70,
		"macdFast":       12,
		"macdSlow":       26,
		"macdSignal":     9,
		"atrPeriod":      14,
		"stopLossAtr":    2,
		"riskPerTrade":   0.01,
	}
}

func (s *SentimentWeighted) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
	p := params.Merge(s.DefaultParameters())
	minSent, err := p.Positive("minSentiment")
	if err != nil {
		return nil, err
	}
	minVol, err := p.Positive("minVolumeRatio")
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
	macdFast, err := p.Period("macdFast")
	if err != nil {
		return nil, err
	}
	macdSlow, err := p.Period("macdSlow")
	if err != nil {
		return nil, err
	}
	macdSignal, err := p.Period("macdSignal")
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
	risk, err := p.Positive("riskPerTrade")
	if err != nil {
		return nil, err
	}

	sent := ctx.Sentiment
	if sent == nil || sent.VolumeRatio < minVol {
		return nil, nil
	}

	closes := model.Closes(ctx.Candles)
	rsi := indicator.RSI(closes, rsiPeriod)
	macd := indicator.MACD(closes, macdFast, macdSlow, macdSignal)
	curRSI, ok := indicator.Last(rsi)
	if !ok || macd == nil {
		return nil, nil
	}
	hist := macd.Histogram[len(macd.Histogram)-1]
	price := lastCandle(ctx).Close

	emitEntry := func(side model.Side, strength float64, reason string) []Signal {
		dist, ok := StopDistance(ctx.Candles, atrPeriod, stopMult)
		if !ok {
			return nil
		}
		atr, _ := indicator.Last(indicator.ATR(ctx.Candles, atrPeriod))
		tpDist := atr * (2 + strength*2)
		stop, _ := ProtectiveLevels(side, price, dist, 1)
		var tp float64
		if side == model.SideBuy {
			tp = price + tpDist
		} else {
			tp = price - tpDist
		}
		return []Signal{entry(s.Name(), side, price, stop, tp, risk, reason)}
	}

	switch {
	case sent.BullishRatio >= minSent && curRSI < overbought && hist > 0:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideSell {
				return []Signal{exit(s.Name(), model.SideBuy, price, "bullish sentiment with technical confirmation")}, nil
			}
			return nil, nil
		}
		return emitEntry(model.SideBuy, sent.BullishRatio, "bullish sentiment with technical confirmation"), nil

	case sent.BearishRatio >= minSent && curRSI > oversold && hist < 0:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideBuy {
				return []Signal{exit(s.Name(), model.SideSell, price, "bearish sentiment with technical confirmation")}, nil
			}
			return nil, nil
		}
		return emitEntry(model.SideSell, sent.BearishRatio, "bearish sentiment with technical confirmation"), nil
	}
	return nil, nil
}
