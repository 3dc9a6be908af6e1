package optimizer

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/services/backtest"
)

var ErrEmptyGrid = errors.New("empty candidate grid")

// Option configures an optimizer.
type Option func(*config)

type config struct {
	workers int
	grid    *Grid
}

// WithWorkers sets the number of sweep goroutines (default GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithGrid replaces the default candidate grid. For the dual optimizer it applies to both axes.
func WithGrid(g Grid) Option {
	return func(c *config) {
		c.grid = &g
	}
}

func newConfig(def Grid, opts []Option) config {
	c := config{workers: runtime.GOMAXPROCS(0), grid: &def}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// sweep evaluates score for candidates 0..n-1 on a worker pool. Each worker writes
// only its own slot of the result slice. A cancelled ctx stops feeding candidates
// and the partial results are discarded.
func sweep(ctx context.Context, workers, n int, score func(i int) float64) ([]float64, error) {
	if n == 0 {
		return nil, ErrEmptyGrid
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	results := make([]float64, n)
	jobs := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[i] = score(i)
			}
		}()
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// argmax returns the first index holding the maximum among eligible entries, or -1.
func argmax(scores []float64, eligible func(i int) bool) int {
	best := -1
	bestVal := math.Inf(-1)
	for i, v := range scores {
		if eligible != nil && !eligible(i) {
			continue
		}
		if best == -1 || v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

// scoreRule is the multiple rule achieves on s. Candidates whose longest window does not
// fit in the series score 0 so they never win by accident.
func scoreRule(s models.Series, x *backtest.IndicatorSet, rule backtest.Rule) float64 {
	if rule.MaxWindow() >= s.Len() {
		return 0
	}
	cmp, err := x.Comparator(rule)
	if err != nil {
		return 0
	}
	m := backtest.Simulate(s, cmp).Multiple
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return m
}

// fitting keeps the windows shorter than n, the ones worth precomputing.
func fitting(windows []int, n int) []int {
	out := make([]int, 0, len(windows))
	for _, w := range windows {
		if w < n {
			out = append(out, w)
		}
	}
	return out
}
