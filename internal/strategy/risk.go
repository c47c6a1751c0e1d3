package strategy

import (
	"math"

	"strategy-engine/internal/indicator"
	"strategy-engine/internal/model"
)

// PositionSize computes the position size for an entry so that hitting the
// stop loses at most equity*riskFraction:
//
//	size = (equity * riskFraction) / |entry - stop|
//
// Returns 0 when the stop distance is zero: the caller must not open a
// position it cannot bound.
func PositionSize(equity, riskFraction, entryPrice, stopLoss float64) float64 {
	dist := math.Abs(entryPrice - stopLoss)
	if dist == 0 || equity <= 0 || riskFraction <= 0 {
		return 0
	}
	return equity * riskFraction / dist
}

// StopDistance returns the ATR-based protective stop distance for the last
// candle: ATR(period) * mult. ok is false when there is not enough data or
// volatility is zero.
func StopDistance(candles []model.Candle, period int, mult float64) (float64, bool) {
	atr := indicator.ATR(candles, period)
	last, ok := indicator.Last(atr)
	if !ok || last <= 0 {
		return 0, false
	}
	return last * mult, true
}

// ProtectiveLevels places stop-loss and take-profit around an entry price.
// The take-profit distance is rewardRatio times the stop distance.
func ProtectiveLevels(side model.Side, entryPrice, stopDist, rewardRatio float64) (stop, takeProfit float64) {
	if side == model.SideBuy {
		return entryPrice - stopDist, entryPrice + stopDist*rewardRatio
	}
	return entryPrice + stopDist, entryPrice - stopDist*rewardRatio
}

// protectiveEntry builds a single ENTRY signal with an ATR-derived stop at
// the last close. Returns nil when ATR cannot be computed: no stop means
// no bounded risk, so no trade.
func protectiveEntry(ctx Context, name string, side model.Side, atrPeriod int, stopMult, rewardRatio, risk float64, reason string) []Signal {
	dist, ok := StopDistance(ctx.Candles, atrPeriod, stopMult)
	if !ok {
		return nil
	}
	price := lastCandle(ctx).Close
	stop, tp := ProtectiveLevels(side, price, dist, rewardRatio)
	return []Signal{entry(name, side, price, stop, tp, risk, reason)}
}
