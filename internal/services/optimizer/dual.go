package optimizer

import (
	"context"
	"fmt"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/services/backtest"
)

// Surface is the dual-window result table: Values[r][c] is the multiple for
// (Fast[r], Slow[c]). Diagonal and unfit cells hold 0.
type Surface struct {
	Fast   []int
	Slow   []int
	Values [][]float64
}

// Best returns the row-major first maximum off the diagonal: fast window outer, slow inner.
func (s Surface) Best() (fast, slow int, multiple float64, ok bool) {
	found := false
	for r, f := range s.Fast {
		for c, sl := range s.Slow {
			if f == sl {
				continue
			}
			if v := s.Values[r][c]; !found || v > multiple {
				fast, slow, multiple, found = f, sl, v, true
			}
		}
	}
	return fast, slow, multiple, found
}

// Dual finds the (fast, slow) SMA pair maximizing the fast-above-slow crossover rule.
type Dual struct {
	windows []int
	workers int
	// score is swapped in tests to seed a known surface.
	score func(s models.Series, x *backtest.IndicatorSet, fast, slow int) float64
}

func NewDual(opts ...Option) *Dual {
	c := newConfig(DualGrid, opts)
	return &Dual{windows: c.grid.Values(), workers: c.workers, score: scoreDual}
}

func scoreDual(s models.Series, x *backtest.IndicatorSet, fast, slow int) float64 {
	return scoreRule(s, x, backtest.DualRule(fast, slow))
}

func (o *Dual) Kind() models.StrategyKind { return models.StrategyDualSMA }

// Candidates counts the off-diagonal pairs.
func (o *Dual) Candidates() int { return len(o.windows)*len(o.windows) - len(o.windows) }

// Surface evaluates every off-diagonal pair of the grid.
func (o *Dual) Surface(ctx context.Context, s models.Series) (Surface, error) {
	x := backtest.NewIndicatorSet(s)
	x.PrepareSMA(fitting(o.windows, s.Len())...)

	type pair struct{ r, c int }
	pairs := make([]pair, 0, o.Candidates())
	for r, f := range o.windows {
		for c, sl := range o.windows {
			if f != sl {
				pairs = append(pairs, pair{r, c})
			}
		}
	}

	scores, err := sweep(ctx, o.workers, len(pairs), func(i int) float64 {
		p := pairs[i]
		return o.score(s, x, o.windows[p.r], o.windows[p.c])
	})
	if err != nil {
		return Surface{}, err
	}

	surf := Surface{Fast: o.windows, Slow: o.windows, Values: make([][]float64, len(o.windows))}
	for r := range surf.Values {
		surf.Values[r] = make([]float64, len(o.windows))
	}
	for i, p := range pairs {
		surf.Values[p.r][p.c] = scores[i]
	}
	return surf, nil
}

func (o *Dual) Optimize(ctx context.Context, s models.Series) (models.OptimizationResult, error) {
	surf, err := o.Surface(ctx, s)
	if err != nil {
		return models.OptimizationResult{}, fmt.Errorf("dual sma sweep: %w", err)
	}
	fast, slow, m, ok := surf.Best()
	if !ok {
		return models.OptimizationResult{}, fmt.Errorf("dual sma sweep: %w", ErrEmptyGrid)
	}
	return models.OptimizationResult{
		Kind:          models.StrategyDualSMA,
		Windows:       []int{fast, slow},
		Multiple:      m,
		OrganicGrowth: s.OrganicGrowth(),
	}, nil
}
