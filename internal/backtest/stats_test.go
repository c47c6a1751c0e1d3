package backtest

import (
	"testing"
	"time"

	"strategy-engine/internal/model"
)

// ────────────────────────────────────────────────────────────
// Drawdown
// ────────────────────────────────────────────────────────────

func TestMaxDrawdown_HandComputed(t *testing.T) {
	// Peak 120, trough 90: (120-90)/120 = 0.25.
	got := maxDrawdown([]float64{100, 120, 90, 110, 115})
	assertClose(t, "max drawdown", got, 0.25, 1e-9)
}

func TestMaxDrawdown_MonotonicRise(t *testing.T) {
	got := maxDrawdown([]float64{100, 110, 120, 130})
	assertClose(t, "max drawdown", got, 0, 1e-9)
}

func TestMaxDrawdown_Empty(t *testing.T) {
	if got := maxDrawdown(nil); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

// ────────────────────────────────────────────────────────────
// Returns and ratios
// ────────────────────────────────────────────────────────────

func TestStepReturns(t *testing.T) {
	got := stepReturns([]float64{100, 110, 99})
	want := []float64{0.10, -0.10}
	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		assertClose(t, "step return", got[i], want[i], 1e-9)
	}
}

func TestSharpe_ZeroVolatility(t *testing.T) {
	if got := sharpe([]float64{0.01, 0.01, 0.01}, 252); got != 0 {
		t.Errorf("constant returns have zero std, want sharpe 0, got %v", got)
	}
}

func TestSharpe_HandComputed(t *testing.T) {
	// Returns {0.02, -0.01}: mean=0.005, population std=0.015.
	// Sharpe = 0.005/0.015 * sqrt(4) = 0.6667.
	got := sharpe([]float64{0.02, -0.01}, 4)
	assertClose(t, "sharpe", got, 0.6667, 0.001)
}

func TestSortino_NoDownside(t *testing.T) {
	if got := sortino([]float64{0.01, 0.02}, 252); got != 0 {
		t.Errorf("no downside deviation, want sortino 0, got %v", got)
	}
}

func TestSortino_OnlyDownsideInDenominator(t *testing.T) {
	// Returns {0.02, -0.01}: mean=0.005, downside dev=sqrt(0.0001/2)=0.007071.
	// Sortino = 0.005/0.007071 * sqrt(4) = 1.41421.
	got := sortino([]float64{0.02, -0.01}, 4)
	assertClose(t, "sortino", got, 1.41421, 0.001)
}

// ────────────────────────────────────────────────────────────
// Aggregation
// ────────────────────────────────────────────────────────────

func TestNewResult_MixedTrades(t *testing.T) {
	trades := []model.Trade{
		{PnL: 200}, {PnL: -50}, {PnL: 100}, {PnL: -50},
	}
	curve := []float64{10000, 10200, 10150, 10250, 10200}
	cfg := Config{Symbol: "TEST", InitialEquity: 10000, PeriodsPerYear: 252}

	r := newResult(cfg, "scripted", trades, curve, flatCandles(5, 100))

	assertClose(t, "final equity", r.FinalEquity, 10200, 1e-9)
	assertClose(t, "total pnl", r.TotalPnL, 200, 1e-9)
	assertClose(t, "win rate", r.WinRate, 0.5, 1e-9)
	assertClose(t, "profit factor", r.ProfitFactor, 3.0, 1e-9) // 300/100
	if r.GrossLossZero {
		t.Error("GrossLossZero should be false with losing trades")
	}
}

func TestNewResult_MonthlyReturnsBucketedByCandleMonth(t *testing.T) {
	// Two candles in March, one in April.
	candles := []model.Candle{
		{TS: time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)},
		{TS: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{TS: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	curve := []float64{10100, 10150, 10050}
	cfg := Config{InitialEquity: 10000, PeriodsPerYear: 252}

	r := newResult(cfg, "scripted", nil, curve, candles)

	assertClose(t, "march", r.MonthlyReturns["2025-03"], 150, 1e-9)
	assertClose(t, "april", r.MonthlyReturns["2025-04"], -100, 1e-9)
}
