package optimizer

import (
	"context"
	"fmt"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/services/backtest"
)

// Single finds the SMA window maximizing the close-above-SMA rule.
type Single struct {
	windows []int
	workers int
}

// NewSingle builds the single-window optimizer for a grid step of 1 or 5.
func NewSingle(step int, opts ...Option) (*Single, error) {
	g, err := SingleGrid(step)
	if err != nil {
		return nil, err
	}
	c := newConfig(g, opts)
	return &Single{windows: c.grid.Values(), workers: c.workers}, nil
}

func (o *Single) Kind() models.StrategyKind { return models.StrategySingleSMA }

func (o *Single) Candidates() int { return len(o.windows) }

// Optimize scans the grid in ascending order; the first window reaching the maximum wins.
func (o *Single) Optimize(ctx context.Context, s models.Series) (models.OptimizationResult, error) {
	x := backtest.NewIndicatorSet(s)
	x.PrepareSMA(fitting(o.windows, s.Len())...)

	w, m, err := optimizeWindow(ctx, o.workers, o.windows, func(n int) float64 {
		return scoreRule(s, x, backtest.SingleRule(n))
	})
	if err != nil {
		return models.OptimizationResult{}, fmt.Errorf("single sma sweep: %w", err)
	}
	return models.OptimizationResult{
		Kind:          models.StrategySingleSMA,
		Windows:       []int{w},
		Multiple:      m,
		OrganicGrowth: s.OrganicGrowth(),
	}, nil
}

// optimizeWindow runs a one-dimensional sweep and returns the stable arg-max.
func optimizeWindow(ctx context.Context, workers int, windows []int, score func(n int) float64) (int, float64, error) {
	scores, err := sweep(ctx, workers, len(windows), func(i int) float64 { return score(windows[i]) })
	if err != nil {
		return 0, 0, err
	}
	best := argmax(scores, nil)
	return windows[best], scores[best], nil
}
