package indicator

import (
	"testing"

	"strategy-engine/internal/model"
)

func flatCandle(price float64) model.Candle {
	return model.Candle{Open: price, High: price, Low: price, Close: price}
}

func ohlc(open, high, low, close float64) model.Candle {
	return model.Candle{Open: open, High: high, Low: low, Close: close}
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestMACD_ConstantSeries_AllZero(t *testing.T) {
	// EMA(fast) == EMA(slow) on a flat series, so line, signal and
	// histogram are all zero.
	res := MACD(constantSeries(100, 40), 12, 26, 9)
	if res == nil {
		t.Fatal("expected result, got nil")
	}
	if len(res.Line) != 40 || len(res.Signal) != 40 || len(res.Histogram) != 40 {
		t.Fatalf("lengths: line=%d signal=%d hist=%d, want 40 each", len(res.Line), len(res.Signal), len(res.Histogram))
	}
	for i := range res.Line {
		assertClose(t, "MACD line", res.Line[i], 0, 1e-9)
		assertClose(t, "MACD signal", res.Signal[i], 0, 1e-9)
		assertClose(t, "MACD histogram", res.Histogram[i], 0, 1e-9)
	}
}

func TestMACD_HistogramIsLineMinusSignal(t *testing.T) {
	series := []float64{10, 12, 11, 14, 13, 16, 15, 18, 17, 20, 19, 22, 21, 24, 23, 26, 25, 28, 27, 30, 29, 32, 31, 34, 33, 36, 35}
	res := MACD(series, 5, 10, 4)
	if res == nil {
		t.Fatal("expected result, got nil")
	}
	for i := range res.Line {
		assertClose(t, "histogram identity", res.Histogram[i], res.Line[i]-res.Signal[i], 1e-9)
	}
}

func TestMACD_InsufficientData(t *testing.T) {
	if res := MACD(constantSeries(1, 10), 12, 26, 9); res != nil {
		t.Errorf("expected nil for series shorter than slow period, got %v", res)
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger Bands
// ────────────────────────────────────────────────────────────

func TestBollingerBands_ZeroVariance(t *testing.T) {
	res := BollingerBands(constantSeries(50, 25), 20, 2)
	if res == nil {
		t.Fatal("expected result, got nil")
	}
	if len(res.Middle) != 6 {
		t.Fatalf("length: got %d, want 6", len(res.Middle))
	}
	for i := range res.Middle {
		assertClose(t, "middle", res.Middle[i], 50, 1e-9)
		assertClose(t, "upper", res.Upper[i], 50, 1e-9)
		assertClose(t, "lower", res.Lower[i], 50, 1e-9)
	}
}

func TestBollingerBands_HandComputed(t *testing.T) {
	// Window {2, 4, 4, 4, 5, 5, 7, 9}: mean=5, stddev=2.
	// mult=2: upper = 5 + 4 = 9, lower = 5 - 4 = 1.
	res := BollingerBands([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	if res == nil || len(res.Middle) != 1 {
		t.Fatalf("expected single-point result, got %v", res)
	}
	assertClose(t, "middle", res.Middle[0], 5, 0.0001)
	assertClose(t, "upper", res.Upper[0], 9, 0.0001)
	assertClose(t, "lower", res.Lower[0], 1, 0.0001)
}

// ────────────────────────────────────────────────────────────
// True Range / ATR
// ────────────────────────────────────────────────────────────

func TestTrueRange_GapUp(t *testing.T) {
	// Candle 1: H=105 L=95     → TR = 10 (no previous close)
	// Candle 2: H=120 L=112, prev close 100 → TR = max(8, 20, 12) = 20
	candles := []model.Candle{
		ohlc(100, 105, 95, 100),
		ohlc(115, 120, 112, 118),
	}
	tr := TrueRange(candles)
	if len(tr) != 2 {
		t.Fatalf("length: got %d, want 2", len(tr))
	}
	assertClose(t, "TR[0]", tr[0], 10, 1e-9)
	assertClose(t, "TR[1]", tr[1], 20, 1e-9)
}

func TestATR_ZeroVolatility(t *testing.T) {
	candles := make([]model.Candle, 20)
	for i := range candles {
		candles[i] = flatCandle(100)
	}
	atr := ATR(candles, 14)
	if len(atr) != 20 {
		t.Fatalf("length: got %d, want 20", len(atr))
	}
	for _, v := range atr {
		assertClose(t, "ATR flat market", v, 0, 1e-9)
	}
}

func TestATR_InsufficientData(t *testing.T) {
	if got := ATR([]model.Candle{flatCandle(1)}, 14); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

// ────────────────────────────────────────────────────────────
// Stochastic %K
// ────────────────────────────────────────────────────────────

func TestStochastic_HandComputed(t *testing.T) {
	// Window of 3: lowest low 90, highest high 110, close 105
	// %K = (105-90)/(110-90)*100 = 75
	candles := []model.Candle{
		ohlc(100, 104, 90, 95),
		ohlc(95, 110, 94, 108),
		ohlc(108, 109, 101, 105),
	}
	got := Stochastic(candles, 3)
	if len(got) != 1 {
		t.Fatalf("length: got %d, want 1", len(got))
	}
	assertClose(t, "%K", got[0], 75, 0.0001)
}

func TestStochastic_FlatWindow(t *testing.T) {
	candles := []model.Candle{flatCandle(10), flatCandle(10), flatCandle(10)}
	got := Stochastic(candles, 3)
	if len(got) != 1 {
		t.Fatalf("length: got %d, want 1", len(got))
	}
	assertClose(t, "%K flat", got[0], 50, 1e-9)
}
