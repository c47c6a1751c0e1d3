package strategy

import (
	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// BollingerReversion trades band touches with an RSI momentum filter.
//
// Buy: close at or below the lower band while RSI > 30 (momentum is not
// collapsing). Sell: close at or above the upper band while RSI < 70.
// These are level conditions, not crossings; the filter is what keeps the
// strategy from buying straight into a waterfall.
type BollingerReversion struct{}

// NewBollingerReversion creates the Bollinger Bands strategy.
func NewBollingerReversion() *BollingerReversion { return &BollingerReversion{} }

func (s *BollingerReversion) Name() string { return "bollinger_reversion" }

func (s *BollingerReversion) Description() string {
	return "Bollinger band touch with RSI momentum confirmation"
}

func (s *BollingerReversion) DefaultParameters() Parameters {
	return Parameters{
		"period":         20,
		"stdDev":         2,
		"momentumPeriod": 14,
		"atrPeriod":      14,
		"stopLossAtr":    2,
		"rewardRatio":    2,
		"riskPerTrade":   0.01,
	}
}

func (s *BollingerReversion) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
	p := params.Merge(s.DefaultParameters())
	period, err := p.Period("period")
	if err != nil {
		return nil, err
	}
	mult, err := p.Positive("stdDev")
	if err != nil {
		return nil, err
	}
	momPeriod, err := p.Period("momentumPeriod")
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

	closes := model.Closes(ctx.Candles)
	bands := indicator.BollingerBands(closes, period, mult)
	rsi := indicator.RSI(closes, momPeriod)
	if bands == nil || len(rsi) == 0 {
		return nil, nil
	}
	upper, _ := indicator.Last(bands.Upper)
	lower, _ := indicator.Last(bands.Lower)
	momentum := rsi[len(rsi)-1]
	price := lastCandle(ctx).Close

	switch {
	case price <= lower && momentum > 30:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideSell {
				return []Signal{exit(s.Name(), model.SideBuy, price, "close at lower band, momentum holding")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideBuy, atrPeriod, stopMult, rr, risk, "close at lower band, momentum holding"), nil

	case price >= upper && momentum < 70:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideBuy {
				return []Signal{exit(s.Name(), model.SideSell, price, "close at upper band, momentum fading")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideSell, atrPeriod, stopMult, rr, risk, "close at upper band, momentum fading"), nil
	}
	return nil, nil
}
