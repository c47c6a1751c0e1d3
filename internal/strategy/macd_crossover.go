package strategy

import (
	"fmt"

	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// MACDCrossover trades MACD-line/signal-line crossings with the same strict
// edge rule as the EMA crossover.
type MACDCrossover struct{}

// NewMACDCrossover creates the MACD crossover strategy.
func NewMACDCrossover() *MACDCrossover { return &MACDCrossover{} }

func (s *MACDCrossover) Name() string { return "macd_crossover" }

func (s *MACDCrossover) Description() string {
	return "MACD line vs signal line crossover"
}

func (s *MACDCrossover) DefaultParameters() Parameters {
	return Parameters{
		"fastPeriod":   12,
		"slowPeriod":   26,
		"signalPeriod": 9,
		"atrPeriod":    14,
		"stopLossAtr":  2,
		"rewardRatio":  2,
		"riskPerTrade": 0.01,
	}
}

func (s *MACDCrossover) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
	p := params.Merge(s.DefaultParameters())
	fast, err := p.Period("fastPeriod")
	if err != nil {
		return nil, err
	}
	slow, err := p.Period("slowPeriod")
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fastPeriod %d must be < slowPeriod %d", ErrInvalidParameter, fast, slow)
	}
	sigPeriod, err := p.Period("signalPeriod")
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

	if len(ctx.Candles) < slow+1 {
		return nil, nil
	}
	macd := indicator.MACD(model.Closes(ctx.Candles), fast, slow, sigPeriod)
	if macd == nil {
		return nil, nil
	}
	n := len(macd.Line)
	prevM, curM := macd.Line[n-2], macd.Line[n-1]
	prevS, curS := macd.Signal[n-2], macd.Signal[n-1]
	price := lastCandle(ctx).Close

	switch {
	case crossedAbove(prevM, prevS, curM, curS):
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideSell {
				return []Signal{exit(s.Name(), model.SideBuy, price, "MACD crossed above signal")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideBuy, atrPeriod, stopMult, rr, risk, "MACD crossed above signal"), nil

	case crossedBelow(prevM, prevS, curM, curS):
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideBuy {
				return []Signal{exit(s.Name(), model.SideSell, price, "MACD crossed below signal")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideSell, atrPeriod, stopMult, rr, risk, "MACD crossed below signal"), nil
	}
	return nil, nil
}
