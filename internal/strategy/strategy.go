// Package strategy provides rule-based trading strategies over candle data.
//
// A Strategy is a pure function of its Context and Parameters: it holds no
// mutable state between calls, so instances are safe to share across
// goroutines. Anything a strategy needs from the past (previous indicator
// values for crossover detection) is recomputed from Context.Candles.
package strategy

import "strategy-engine/internal/model"

// SignalType distinguishes opening a position from closing one.
type SignalType string

const (
	SignalEntry SignalType = "ENTRY"
	SignalExit  SignalType = "EXIT"
)

// Signal represents a trading signal emitted by a strategy evaluation.
// Signals carry no identity: the consumer (backtester or live executor)
// turns them into positions.
type Signal struct {
	Strategy     string     `json:"strategy"`
	Type         SignalType `json:"type"`
	Side         model.Side `json:"side"`
	Price        float64    `json:"price"`
	StopLoss     float64    `json:"stop_loss"`
	TakeProfit   float64    `json:"take_profit"`
	RiskFraction float64    `json:"risk_fraction"` // e.g. 0.01 = 1% of equity
	Reason       string     `json:"reason"`
}

// PositionState describes the caller's currently open position, if any.
type PositionState struct {
	Side       model.Side
	EntryPrice float64
}

// Sentiment is an externally supplied market-sentiment snapshot for a symbol.
type Sentiment struct {
	BullishRatio float64 `json:"bullish_ratio"` // fraction of bullish mentions, 0..1
	BearishRatio float64 `json:"bearish_ratio"`
	VolumeRatio  float64 `json:"volume_ratio"` // mention volume vs trailing average
}

// Context is the evaluation input: everything a strategy may look at.
// Candles are ordered ascending; the last candle is the evaluation point.
type Context struct {
	Symbol    string
	Candles   []model.Candle
	Position  *PositionState // nil when flat
	Sentiment *Sentiment     // nil unless a sentiment feed is attached
}

// Strategy is the interface all trading strategies implement.
type Strategy interface {
	// Name returns the unique registry name of the strategy.
	Name() string

	// Description returns a one-line human-readable summary.
	Description() string

	// DefaultParameters returns the full parameter set with default values.
	DefaultParameters() Parameters

	// Evaluate inspects the context and returns zero or more signals.
	// An empty result is the normal negative case, never an error; errors
	// are reserved for invalid parameters.
	Evaluate(ctx Context, params Parameters) ([]Signal, error)
}

// crossedAbove reports a strict upward crossing between the last two steps:
// a was at or below b, and is now above it.
func crossedAbove(prevA, prevB, curA, curB float64) bool {
	return prevA <= prevB && curA > curB
}

// crossedBelow reports a strict downward crossing.
func crossedBelow(prevA, prevB, curA, curB float64) bool {
	return prevA >= prevB && curA < curB
}

// lastCandle returns the evaluation-point candle.
func lastCandle(ctx Context) model.Candle {
	return ctx.Candles[len(ctx.Candles)-1]
}

// entry builds an ENTRY signal with protective levels around the last close.
func entry(name string, side model.Side, price, stop, tp, risk float64, reason string) Signal {
	return Signal{
		Strategy:     name,
		Type:         SignalEntry,
		Side:         side,
		Price:        price,
		StopLoss:     stop,
		TakeProfit:   tp,
		RiskFraction: risk,
		Reason:       reason,
	}
}

// exit builds an EXIT signal closing the caller's open position.
func exit(name string, side model.Side, price float64, reason string) Signal {
	return Signal{
		Strategy: name,
		Type:     SignalExit,
		Side:     side,
		Price:    price,
		Reason:   reason,
	}
}
