package strategy

import (
	"fmt"

	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// RSIReversal trades RSI threshold recoveries.
//
// Buy: RSI crosses up through the oversold threshold (previous <= threshold,
// current > threshold), reversal-on-recovery rather than entry-while-oversold.
// Sell: RSI crosses down through the overbought threshold.
type RSIReversal struct{}

// NewRSIReversal creates the RSI reversal strategy.
func NewRSIReversal() *RSIReversal { return &RSIReversal{} }

func (s *RSIReversal) Name() string { return "rsi_reversal" }

func (s *RSIReversal) Description() string {
	return "RSI oversold/overbought recovery crossings"
}

func (s *RSIReversal) DefaultParameters() Parameters {
	return Parameters{
		"rsiPeriod":    14,
		"oversold":     30,
		"overbought":   70,
		"atrPeriod":    14,
		"stopLossAtr":  2,
		"rewardRatio":  2,
		"riskPerTrade": 0.01,
	}
}

func (s *RSIReversal) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
	p := params.Merge(s.DefaultParameters())
	period, err := p.Period("rsiPeriod")
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
	if oversold >= overbought {
		return nil, fmt.Errorf("%w: oversold %v must be < overbought %v", ErrInvalidParameter, oversold, overbought)
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

	rsi := indicator.RSI(model.Closes(ctx.Candles), period)
	if len(rsi) < 2 {
		return nil, nil
	}
	prev, cur := rsi[len(rsi)-2], rsi[len(rsi)-1]
	price := lastCandle(ctx).Close

	switch {
	case prev <= oversold && cur > oversold:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideSell {
				return []Signal{exit(s.Name(), model.SideBuy, price, "RSI recovered above oversold")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideBuy, atrPeriod, stopMult, rr, risk, "RSI recovered above oversold"), nil

	case prev >= overbought && cur < overbought:
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideBuy {
				return []Signal{exit(s.Name(), model.SideSell, price, "RSI fell below overbought")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideSell, atrPeriod, stopMult, rr, risk, "RSI fell below overbought"), nil
	}
	return nil, nil
}
