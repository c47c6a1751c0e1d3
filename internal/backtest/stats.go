package backtest

import (
	"math"

	"strategy-engine/internal/model"
)

// Result is the immutable aggregate of one backtest run.
//
// Degenerate cases resolve to explicit zeros, never NaN: a run with zero
// trades reports every ratio as 0, and a run with no losing trades reports
// ProfitFactor 0 with GrossLossZero set so the caller can surface "no
// losses" instead of a meaningless division.
type Result struct {
	Symbol        string        `json:"symbol"`
	Strategy      string        `json:"strategy"`
	Trades        []model.Trade `json:"trades"`
	EquityCurve   []float64     `json:"equity_curve"`
	InitialEquity float64       `json:"initial_equity"`
	FinalEquity   float64       `json:"final_equity"`
	TotalPnL      float64       `json:"total_pnl"`

	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	GrossLossZero bool    `json:"gross_loss_zero"`
	MaxDrawdown   float64 `json:"max_drawdown"` // peak-to-trough fraction
	SharpeRatio   float64 `json:"sharpe_ratio"`
	SortinoRatio  float64 `json:"sortino_ratio"`
	CalmarRatio   float64 `json:"calmar_ratio"`

	// MonthlyReturns maps "2006-01" to the equity delta over that month.
	MonthlyReturns map[string]float64 `json:"monthly_returns"`
}

// newResult computes all performance statistics for a finished run.
func newResult(cfg Config, stratName string, trades []model.Trade, equityCurve []float64, candles []model.Candle) *Result {
	r := &Result{
		Symbol:         cfg.Symbol,
		Strategy:       stratName,
		Trades:         trades,
		EquityCurve:    equityCurve,
		InitialEquity:  cfg.InitialEquity,
		FinalEquity:    cfg.InitialEquity,
		MonthlyReturns: map[string]float64{},
	}
	if len(equityCurve) > 0 {
		r.FinalEquity = equityCurve[len(equityCurve)-1]
	}
	r.TotalPnL = r.FinalEquity - r.InitialEquity

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range trades {
		if t.Win() {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	if len(trades) > 0 {
		r.WinRate = float64(wins) / float64(len(trades))
		if grossLoss == 0 {
			r.GrossLossZero = grossProfit > 0
		} else {
			r.ProfitFactor = grossProfit / grossLoss
		}
	}

	r.MaxDrawdown = maxDrawdown(equityCurve)
	returns := stepReturns(equityCurve)
	r.SharpeRatio = sharpe(returns, cfg.PeriodsPerYear)
	r.SortinoRatio = sortino(returns, cfg.PeriodsPerYear)
	r.CalmarRatio = calmar(r, len(candles), cfg.PeriodsPerYear)
	r.MonthlyReturns = monthlyReturns(equityCurve, candles, cfg.InitialEquity)
	return r
}

// stepReturns converts the equity curve into per-period fractional returns.
func stepReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (equity[i]-equity[i-1])/equity[i-1])
	}
	return out
}

// maxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
func maxDrawdown(equity []float64) float64 {
	peak, maxDD := 0.0, 0.0
	for _, eq := range equity {
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			dd := (peak - eq) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	for _, v := range vals {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(vals)))
}

func sharpe(returns []float64, periodsPerYear float64) float64 {
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// sortino uses only downside deviation in the denominator.
func sortino(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, _ := meanStd(returns)
	downSq := 0.0
	for _, r := range returns {
		if r < 0 {
			downSq += r * r
		}
	}
	down := math.Sqrt(downSq / float64(len(returns)))
	if down == 0 {
		return 0
	}
	return mean / down * math.Sqrt(periodsPerYear)
}

// calmar is annualized return over max drawdown; 0 when there is no drawdown
// or no elapsed time to annualize over.
func calmar(r *Result, periods int, periodsPerYear float64) float64 {
	if r.MaxDrawdown == 0 || periods == 0 || r.InitialEquity <= 0 {
		return 0
	}
	years := float64(periods) / periodsPerYear
	if years <= 0 {
		return 0
	}
	total := r.FinalEquity/r.InitialEquity - 1
	base := 1 + total
	if base <= 0 {
		// Blown account: annualizing a -100% return is meaningless.
		return 0
	}
	annualized := math.Pow(base, 1/years) - 1
	return annualized / r.MaxDrawdown
}

// monthlyReturns groups equity deltas by calendar month of the candle
// timestamps, keyed "2006-01".
func monthlyReturns(equity []float64, candles []model.Candle, initialEquity float64) map[string]float64 {
	out := map[string]float64{}
	prev := initialEquity
	for i, c := range candles {
		if i >= len(equity) {
			break
		}
		key := c.TS.UTC().Format("2006-01")
		out[key] += equity[i] - prev
		prev = equity[i]
	}
	return out
}
