// cmd/backtest replays historical candles from SQLite through a strategy and
// prints the resulting performance statistics.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/engine.db --symbol=BTCUSDT --strategy=ma_crossover
//	go run ./cmd/backtest --strategy=ma_crossover --sweep="fastPeriod=5:15:5;slowPeriod=20:40:10"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"strategy-engine/internal/backtest"
	sqlitestore "strategy-engine/internal/store/sqlite"
	"strategy-engine/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	dbPath := flag.String("db", "data/engine.db", "Path to SQLite database")
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to backtest")
	timeframe := flag.String("tf", "1h", "Candle timeframe to load")
	stratName := flag.String("strategy", "ma_crossover", "Strategy name")
	paramStr := flag.String("params", "", "Parameter overrides: key=value,key=value")
	equity := flag.Float64("equity", 10000, "Initial equity")
	ppy := flag.Float64("ppy", 252, "Candle periods per year (for annualized ratios)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	sweepStr := flag.String("sweep", "", "Sweep axes: key=start:stop:step;key=start:stop:step")
	workers := flag.Int("workers", 4, "Parallel workers for sweeps")
	save := flag.Bool("save", false, "Persist the result to the database")
	flag.Parse()

	registry := strategy.Default()
	strat, err := registry.Get(*stratName)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	params, err := parseParams(*paramStr)
	if err != nil {
		log.Fatalf("[backtest] bad -params: %v", err)
	}

	store, err := sqlitestore.New(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer store.Close()

	candles, err := store.ReadCandles(*symbol, *timeframe, *fromTS)
	if err != nil {
		log.Fatalf("[backtest] read candles: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("[backtest] no candles for %s %s in %s", *symbol, *timeframe, *dbPath)
	}
	log.Printf("[backtest] loaded %d candles for %s %s", len(candles), *symbol, *timeframe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg := backtest.Config{Symbol: *symbol, InitialEquity: *equity, PeriodsPerYear: *ppy}

	if *sweepStr != "" {
		axes, err := parseSweep(*sweepStr)
		if err != nil {
			log.Fatalf("[backtest] bad -sweep: %v", err)
		}
		runs := backtest.Sweep(ctx, strat, params, axes, cfg, candles, *workers)
		printSweep(runs)
		return
	}

	sim, err := backtest.New(strat, params, cfg)
	if err != nil {
		log.Fatalf("[backtest] init: %v", err)
	}
	result, err := sim.Run(ctx, candles)
	if err != nil {
		log.Fatalf("[backtest] run: %v", err)
	}
	printResult(result)

	if *save {
		if err := store.SaveResult(ctx, result); err != nil {
			log.Fatalf("[backtest] save result: %v", err)
		}
		log.Println("[backtest] result saved")
	}
}

func printResult(r *backtest.Result) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Strategy:       %-19s ║\n", r.Strategy)
	fmt.Printf("║  Trades:         %-19d ║\n", len(r.Trades))
	fmt.Printf("║  Total P&L:      %-19.2f ║\n", r.TotalPnL)
	fmt.Printf("║  Win rate:       %-19.2f ║\n", r.WinRate)
	if r.GrossLossZero {
		fmt.Printf("║  Profit factor:  %-19s ║\n", "n/a (no losses)")
	} else {
		fmt.Printf("║  Profit factor:  %-19.2f ║\n", r.ProfitFactor)
	}
	fmt.Printf("║  Max drawdown:   %-19.4f ║\n", r.MaxDrawdown)
	fmt.Printf("║  Sharpe:         %-19.2f ║\n", r.SharpeRatio)
	fmt.Printf("║  Sortino:        %-19.2f ║\n", r.SortinoRatio)
	fmt.Printf("║  Calmar:         %-19.2f ║\n", r.CalmarRatio)
	fmt.Println("╚══════════════════════════════════════╝")
}

func printSweep(runs []backtest.SweepRun) {
	fmt.Printf("\n%-50s %8s %8s %8s\n", "PARAMS", "TRADES", "PNL", "SHARPE")
	for _, run := range runs {
		if run.Err != nil {
			fmt.Printf("%-50s error: %v\n", formatParams(run.Params), run.Err)
			continue
		}
		fmt.Printf("%-50s %8d %8.2f %8.2f\n",
			formatParams(run.Params), len(run.Result.Trades), run.Result.TotalPnL, run.Result.SharpeRatio)
	}
}

func formatParams(p strategy.Parameters) string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, fmt.Sprintf("%s=%g", k, v))
	}
	return strings.Join(parts, ",")
}

// parseParams parses "key=value,key=value" overrides.
func parseParams(s string) (strategy.Parameters, error) {
	params := strategy.Parameters{}
	if s == "" {
		return params, nil
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected key=value, got %q", part)
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("value for %s: %w", kv[0], err)
		}
		params[kv[0]] = v
	}
	return params, nil
}

// parseSweep parses "key=start:stop:step;key=start:stop:step" axes.
func parseSweep(s string) ([]backtest.SweepAxis, error) {
	var axes []backtest.SweepAxis
	for _, part := range strings.Split(s, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected key=start:stop:step, got %q", part)
		}
		bounds := strings.Split(kv[1], ":")
		if len(bounds) != 3 {
			return nil, fmt.Errorf("expected start:stop:step for %s", kv[0])
		}
		start, err1 := strconv.ParseFloat(bounds[0], 64)
		stop, err2 := strconv.ParseFloat(bounds[1], 64)
		step, err3 := strconv.ParseFloat(bounds[2], 64)
		if err1 != nil || err2 != nil || err3 != nil || step <= 0 {
			return nil, fmt.Errorf("bad bounds for %s: %q", kv[0], kv[1])
		}
		var values []float64
		for v := start; v <= stop; v += step {
			values = append(values, v)
		}
		axes = append(axes, backtest.SweepAxis{Key: kv[0], Values: values})
	}
	return axes, nil
}
