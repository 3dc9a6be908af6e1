package optimizer

import (
	"context"
	"fmt"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/services/backtest"
)

// Exponential finds the EMA span maximizing the EMA-above-close rule.
type Exponential struct {
	windows []int
	workers int
}

func NewExponential(opts ...Option) *Exponential {
	c := newConfig(EMAGrid, opts)
	return &Exponential{windows: c.grid.Values(), workers: c.workers}
}

func (o *Exponential) Kind() models.StrategyKind { return models.StrategyEMA }

func (o *Exponential) Candidates() int { return len(o.windows) }

func (o *Exponential) Optimize(ctx context.Context, s models.Series) (models.OptimizationResult, error) {
	x := backtest.NewIndicatorSet(s)
	x.PrepareEMA(fitting(o.windows, s.Len())...)

	w, m, err := optimizeWindow(ctx, o.workers, o.windows, func(n int) float64 {
		return scoreRule(s, x, backtest.EMARule(n))
	})
	if err != nil {
		return models.OptimizationResult{}, fmt.Errorf("ema sweep: %w", err)
	}
	return models.OptimizationResult{
		Kind:          models.StrategyEMA,
		Windows:       []int{w},
		Multiple:      m,
		OrganicGrowth: s.OrganicGrowth(),
	}, nil
}
