package strategy

import (
	"fmt"

	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// MACrossover implements an EMA crossover strategy.
//
// Buy: fast EMA crosses above slow EMA (strict crossing between the last two
// candles, not "is above"). Sell: the symmetric crossing down. With an open
// opposite position it emits an EXIT instead of a fresh ENTRY.
type MACrossover struct{}

// NewMACrossover creates the EMA crossover strategy.
func NewMACrossover() *MACrossover { return &MACrossover{} }

func (s *MACrossover) Name() string { return "ma_crossover" }

func (s *MACrossover) Description() string {
	return "EMA fast/slow crossover with ATR protective stops"
}

func (s *MACrossover) DefaultParameters() Parameters {
	return Parameters{
		"fastPeriod":   9,
		"slowPeriod":   21,
		"atrPeriod":    14,
		"stopLossAtr":  2,
		"rewardRatio":  2,
		"riskPerTrade": 0.01,
	}
}

func (s *MACrossover) Evaluate(ctx Context, params Parameters) ([]Signal, error) {
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

	// Need two consecutive EMA points past the slow warm-up plus ATR data.
	if len(ctx.Candles) < slow+1 || len(ctx.Candles) < atrPeriod {
		return nil, nil
	}
	closes := model.Closes(ctx.Candles)
	fastEMA := indicator.EMA(closes, fast)
	slowEMA := indicator.EMA(closes, slow)
	n := len(closes)
	prevF, curF := fastEMA[n-2], fastEMA[n-1]
	prevS, curS := slowEMA[n-2], slowEMA[n-1]
	price := lastCandle(ctx).Close

	switch {
	case crossedAbove(prevF, prevS, curF, curS):
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideSell {
				return []Signal{exit(s.Name(), model.SideBuy, price, "fast EMA crossed above slow EMA")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideBuy, atrPeriod, stopMult, rr, risk, "fast EMA crossed above slow EMA"), nil

	case crossedBelow(prevF, prevS, curF, curS):
		if ctx.Position != nil {
			if ctx.Position.Side == model.SideBuy {
				return []Signal{exit(s.Name(), model.SideSell, price, "fast EMA crossed below slow EMA")}, nil
			}
			return nil, nil
		}
		return protectiveEntry(ctx, s.Name(), model.SideSell, atrPeriod, stopMult, rr, risk, "fast EMA crossed below slow EMA"), nil
	}
	return nil, nil
}
