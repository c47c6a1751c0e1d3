package backtest

import (
	"context"
	"sync"

	"strategy-engine/internal/model"
	"strategy-engine/internal/strategy"
)

// SweepAxis is one parameter dimension of a sweep.
type SweepAxis struct {
	Key    string
	Values []float64
}

// SweepRun is the outcome of one parameter combination.
type SweepRun struct {
	Params strategy.Parameters
	Result *Result
	Err    error
}

// Sweep runs one independent backtest per combination of the axis values, in
// parallel with up to workers goroutines. Each run gets its own Simulator,
// so runs share no state; output order matches combination order regardless
// of scheduling.
func Sweep(ctx context.Context, strat strategy.Strategy, base strategy.Parameters, axes []SweepAxis, cfg Config, candles []model.Candle, workers int) []SweepRun {
	combos := expand(base, axes)
	if workers < 1 {
		workers = 1
	}

	runs := make([]SweepRun, len(combos))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				params := combos[idx]
				runs[idx].Params = params
				sim, err := New(strat, params, cfg)
				if err != nil {
					runs[idx].Err = err
					continue
				}
				runs[idx].Result, runs[idx].Err = sim.Run(ctx, candles)
			}
		}()
	}

	for i := range combos {
		select {
		case <-ctx.Done():
		case jobs <- i:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	for i := range runs {
		if runs[i].Result == nil && runs[i].Err == nil {
			runs[i].Params = combos[i]
			runs[i].Err = ctx.Err()
		}
	}
	return runs
}

// expand builds the cartesian product of the axes over the base parameters.
func expand(base strategy.Parameters, axes []SweepAxis) []strategy.Parameters {
	combos := []strategy.Parameters{base.Merge(nil)}
	for _, axis := range axes {
		if len(axis.Values) == 0 {
			continue
		}
		next := make([]strategy.Parameters, 0, len(combos)*len(axis.Values))
		for _, combo := range combos {
			for _, v := range axis.Values {
				c := combo.Merge(nil)
				c[axis.Key] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}
