package strategy

import (
	"testing"

	"strategy-engine/internal/model"
)

// ────────────────────────────────────────────────────────────
// MACD Crossover
// ────────────────────────────────────────────────────────────

func TestMACDCrossover_BuysWhenLineCrossesSignal(t *testing.T) {
	strat := NewMACDCrossover()
	// Flat then up: the MACD line leaves zero faster than its signal EMA,
	// crossing above it on the first rising candle.
	candles := candlesFromCloses([]float64{100, 100, 100, 100, 100, 100, 100, 100, 101})
	params := Parameters{"fastPeriod": 3, "slowPeriod": 6, "signalPeriod": 2, "atrPeriod": 2}

	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != SignalEntry || got[0].Side != model.SideBuy {
		t.Fatalf("expected ENTRY/BUY, got %+v", got)
	}
}

func TestMACDCrossover_SilentOnFlatSeries(t *testing.T) {
	strat := NewMACDCrossover()
	candles := candlesFromCloses([]float64{100, 100, 100, 100, 100, 100, 100, 100, 100})
	params := Parameters{"fastPeriod": 3, "slowPeriod": 6, "signalPeriod": 2, "atrPeriod": 2}

	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no signals, got %+v", got)
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger Reversion
// ────────────────────────────────────────────────────────────

func TestBollingerReversion_BuysLowerBandTouchWithMomentum(t *testing.T) {
	strat := NewBollingerReversion()
	// A grind up ending in one hard dip: the close lands under the lower
	// band while RSI(6) stays just above 30.
	candles := candlesFromCloses([]float64{100, 101, 102, 101, 102, 103, 102, 103, 104, 97})
	params := Parameters{"period": 4, "stdDev": 1, "momentumPeriod": 6, "atrPeriod": 2}

	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != SignalEntry || got[0].Side != model.SideBuy {
		t.Fatalf("expected ENTRY/BUY, got %+v", got)
	}
}

func TestBollingerReversion_MomentumFilterBlocksWaterfall(t *testing.T) {
	strat := NewBollingerReversion()
	// Same shape but a much deeper dip: RSI collapses below 30 and the
	// filter refuses to catch the falling knife.
	candles := candlesFromCloses([]float64{100, 101, 102, 101, 102, 103, 102, 103, 104, 92})
	params := Parameters{"period": 4, "stdDev": 1, "momentumPeriod": 6, "atrPeriod": 2}

	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no signals, got %+v", got)
	}
}

// ────────────────────────────────────────────────────────────
// Multi-Timeframe
// ────────────────────────────────────────────────────────────

var mtfCloses = []float64{100, 100.5, 101.5, 103, 105, 108, 112, 117, 123, 130, 138, 147}

func mtfParams() Parameters {
	return Parameters{
		"fastSMA": 2, "slowSMA": 3, "tfFactor2": 2, "tfFactor3": 3,
		"trendStrengthThreshold": 0.05, "rsiPeriod": 3, "atrPeriod": 2,
	}
}

func TestMultiTimeframe_AllFramesMustAgree(t *testing.T) {
	strat := NewMultiTimeframe()
	candles := candlesFromCloses(mtfCloses)

	// The accelerating uptrend clears the threshold on all three frames.
	// RSI confirmation is disabled by lifting the oversold bound, isolating
	// the trend-agreement logic.
	params := mtfParams()
	params["oversold"] = 100
	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Side != model.SideBuy {
		t.Fatalf("expected BUY with all frames trending up, got %+v", got)
	}
}

func TestMultiTimeframe_RSIMustConfirm(t *testing.T) {
	strat := NewMultiTimeframe()
	candles := candlesFromCloses(mtfCloses)

	// Default oversold=30: RSI of a strong uptrend is pinned at 100, so the
	// confirmation fails even though every frame trends up.
	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, mtfParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no signal without RSI confirmation, got %+v", got)
	}
}

func TestMultiTimeframe_InsufficientHigherFrameData(t *testing.T) {
	strat := NewMultiTimeframe()
	candles := candlesFromCloses(mtfCloses[:6]) // frame 3 resamples to 2 points

	params := mtfParams()
	params["oversold"] = 100
	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: candles}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected silence with a short higher timeframe, got %+v", got)
	}
}

// ────────────────────────────────────────────────────────────
// Sentiment Weighted
// ────────────────────────────────────────────────────────────

func sentimentCandles() []model.Candle {
	return candlesFromCloses([]float64{100, 100, 100, 100, 100, 100, 100, 100, 101, 102})
}

func sentimentParams() Parameters {
	return Parameters{
		"macdFast": 3, "macdSlow": 6, "macdSignal": 2,
		"rsiPeriod": 3, "overbought": 101, "atrPeriod": 2,
	}
}

func TestSentimentWeighted_SilentWithoutSentiment(t *testing.T) {
	strat := NewSentimentWeighted()
	got, err := strat.Evaluate(Context{Symbol: "TEST", Candles: sentimentCandles()}, sentimentParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no signal without a sentiment snapshot, got %+v", got)
	}
}

func TestSentimentWeighted_BullishGateWithConfirmation(t *testing.T) {
	strat := NewSentimentWeighted()
	ctx := Context{
		Symbol:    "TEST",
		Candles:   sentimentCandles(),
		Sentiment: &Sentiment{BullishRatio: 0.8, BearishRatio: 0.1, VolumeRatio: 2.0},
	}
	got, err := strat.Evaluate(ctx, sentimentParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != SignalEntry || got[0].Side != model.SideBuy {
		t.Fatalf("expected ENTRY/BUY, got %+v", got)
	}
	sig := got[0]
	if !(sig.StopLoss < sig.Price && sig.Price < sig.TakeProfit) {
		t.Errorf("protective levels out of order: %+v", sig)
	}
}

func TestSentimentWeighted_VolumeRatioGate(t *testing.T) {
	strat := NewSentimentWeighted()
	ctx := Context{
		Symbol:    "TEST",
		Candles:   sentimentCandles(),
		Sentiment: &Sentiment{BullishRatio: 0.8, VolumeRatio: 1.0}, // under 1.5
	}
	got, err := strat.Evaluate(ctx, sentimentParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no signal below minVolumeRatio, got %+v", got)
	}
}
