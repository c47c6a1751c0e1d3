// Package backtest replays historical candles through a strategy and
// aggregates the resulting trades into performance statistics.
//
// A Simulator is single-threaded and deterministic: identical candles and
// parameters always produce an identical Result. Independent simulators
// share no state, so parameter sweeps run them fully in parallel.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"strategy-engine/internal/model"
	"strategy-engine/internal/strategy"
)

// State is the lifecycle of one backtest run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateComplete:
		return "COMPLETE"
	}
	return "UNKNOWN"
}

// ErrAlreadyRun is returned when Run is called on a completed simulator.
var ErrAlreadyRun = errors.New("backtest: simulator already completed a run")

// Config holds the fixed inputs of a backtest run.
type Config struct {
	Symbol         string
	InitialEquity  float64
	PeriodsPerYear float64 // candle periods per year, e.g. 252 for dailies
}

// Position is one open simulated trade, owned by the simulator until closed.
type Position struct {
	Side       model.Side
	EntryPrice float64
	Size       float64
	StopLoss   float64
	TakeProfit float64
	EntryTime  time.Time
}

func (p *Position) unrealized(price float64) float64 {
	if p.Side == model.SideBuy {
		return (price - p.EntryPrice) * p.Size
	}
	return (p.EntryPrice - price) * p.Size
}

// Simulator replays candles through one strategy instance.
type Simulator struct {
	strat  strategy.Strategy
	params strategy.Parameters
	cfg    Config
	state  State
}

// New creates a simulator in the IDLE state.
func New(strat strategy.Strategy, params strategy.Parameters, cfg Config) (*Simulator, error) {
	if cfg.InitialEquity <= 0 {
		return nil, fmt.Errorf("backtest: initial equity must be > 0, got %v", cfg.InitialEquity)
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = 252
	}
	return &Simulator{strat: strat, params: params, cfg: cfg}, nil
}

// State returns the current lifecycle state.
func (s *Simulator) State() State { return s.state }

// Run replays the candles in chronological order and returns the aggregated
// result. The context is checked between candle steps, so long histories are
// cancellable; a cancelled run returns to IDLE and may be restarted.
func (s *Simulator) Run(ctx context.Context, candles []model.Candle) (*Result, error) {
	if s.state == StateComplete {
		return nil, ErrAlreadyRun
	}
	s.state = StateRunning

	equity := s.cfg.InitialEquity // realized cash equity
	var pos *Position
	equityCurve := make([]float64, 0, len(candles))
	var trades []model.Trade

	closePosition := func(exitPrice float64, exitTime time.Time) {
		pnl := pos.unrealized(exitPrice)
		equity += pnl
		trades = append(trades, model.Trade{
			Symbol:     s.cfg.Symbol,
			Side:       pos.Side,
			EntryTime:  pos.EntryTime,
			ExitTime:   exitTime,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  exitPrice,
			Size:       pos.Size,
			PnL:        pnl,
		})
		pos = nil
	}

	for i := range candles {
		select {
		case <-ctx.Done():
			s.state = StateIdle
			return nil, ctx.Err()
		default:
		}
		c := candles[i]

		// Protective levels first; entries were placed on earlier candles, so
		// skip the entry candle itself.
		if pos != nil && !c.TS.Equal(pos.EntryTime) {
			if exitPrice, hit := pos.checkLevels(c); hit {
				closePosition(exitPrice, c.TS)
			}
		}

		// The strategy only ever sees candles up to and including i.
		sctx := strategy.Context{Symbol: s.cfg.Symbol, Candles: candles[:i+1]}
		if pos != nil {
			sctx.Position = &strategy.PositionState{Side: pos.Side, EntryPrice: pos.EntryPrice}
		}
		signals, err := s.strat.Evaluate(sctx, s.params)
		if err != nil {
			s.state = StateIdle
			return nil, fmt.Errorf("backtest: evaluate at candle %d: %w", i, err)
		}

		for _, sig := range signals {
			switch {
			case pos == nil && sig.Type == strategy.SignalEntry:
				size := strategy.PositionSize(equity, sig.RiskFraction, sig.Price, sig.StopLoss)
				if size <= 0 {
					continue
				}
				pos = &Position{
					Side:       sig.Side,
					EntryPrice: sig.Price,
					Size:       size,
					StopLoss:   sig.StopLoss,
					TakeProfit: sig.TakeProfit,
					EntryTime:  c.TS,
				}
			case pos != nil && sig.Side != pos.Side:
				// Opposing EXIT or ENTRY closes the open position at the close.
				closePosition(c.Close, c.TS)
			}
		}

		curEquity := equity
		if pos != nil {
			curEquity += pos.unrealized(c.Close)
		}
		equityCurve = append(equityCurve, curEquity)
	}

	// A position still open at the final candle is force-closed at the last
	// close for statistics purposes.
	if pos != nil && len(candles) > 0 {
		last := candles[len(candles)-1]
		closePosition(last.Close, last.TS)
		equityCurve[len(equityCurve)-1] = equity
	}

	result := newResult(s.cfg, s.strat.Name(), trades, equityCurve, candles)
	s.state = StateComplete
	return result, nil
}

// checkLevels reports whether the candle breached the stop-loss or
// take-profit. The stop is checked before the take-profit on the same
// candle: the conservative tie-break when both levels fall inside its range.
func (p *Position) checkLevels(c model.Candle) (float64, bool) {
	if p.Side == model.SideBuy {
		if c.Low <= p.StopLoss {
			return p.StopLoss, true
		}
		if c.High >= p.TakeProfit {
			return p.TakeProfit, true
		}
		return 0, false
	}
	if c.High >= p.StopLoss {
		return p.StopLoss, true
	}
	if c.Low <= p.TakeProfit {
		return p.TakeProfit, true
	}
	return 0, false
}
