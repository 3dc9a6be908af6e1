package optimizer

import (
	"context"
	"fmt"
	"time"

	"WindowOpt/internal/domain/models"
)

// Optimizer searches one strategy's window grid for the best return multiple.
type Optimizer interface {
	Kind() models.StrategyKind
	Candidates() int
	Optimize(ctx context.Context, s models.Series) (models.OptimizationResult, error)
}

// New returns the optimizer for kind. singleStep only applies to the single-window grid.
func New(kind models.StrategyKind, singleStep int, opts ...Option) (Optimizer, error) {
	switch kind {
	case models.StrategySingleSMA:
		return NewSingle(singleStep, opts...)
	case models.StrategyDualSMA:
		return NewDual(opts...), nil
	case models.StrategyEMA:
		return NewExponential(opts...), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

// SweepObserver is told how long each optimizer took.
type SweepObserver func(kind models.StrategyKind, candidates int, took time.Duration, err error)

// Results holds one result per strategy kind.
type Results struct {
	Single      models.OptimizationResult
	Dual        models.OptimizationResult
	Exponential models.OptimizationResult
}

// Suite runs the three optimizers over one series.
type Suite struct {
	single Optimizer
	dual   Optimizer
	exp    Optimizer
}

// NewSuite builds one optimizer per strategy kind with shared options.
func NewSuite(singleStep int, opts ...Option) (*Suite, error) {
	built := make(map[models.StrategyKind]Optimizer, 3)
	for _, kind := range models.StrategyKinds() {
		o, err := New(kind, singleStep, opts...)
		if err != nil {
			return nil, err
		}
		built[kind] = o
	}
	return NewSuiteFrom(built[models.StrategySingleSMA], built[models.StrategyDualSMA], built[models.StrategyEMA]), nil
}

// NewSuiteFrom assembles a suite from explicit optimizers.
func NewSuiteFrom(single, dual, exp Optimizer) *Suite {
	return &Suite{single: single, dual: dual, exp: exp}
}

// Run optimizes every kind in order and stops at the first error.
func (s *Suite) Run(ctx context.Context, series models.Series, observe SweepObserver) (Results, error) {
	var res Results
	steps := []struct {
		opt Optimizer
		dst *models.OptimizationResult
	}{
		{s.single, &res.Single},
		{s.dual, &res.Dual},
		{s.exp, &res.Exponential},
	}
	for _, st := range steps {
		start := time.Now()
		r, err := st.opt.Optimize(ctx, series)
		if observe != nil {
			observe(st.opt.Kind(), st.opt.Candidates(), time.Since(start), err)
		}
		if err != nil {
			return Results{}, fmt.Errorf("optimize %s: %w", st.opt.Kind(), err)
		}
		*st.dst = r
	}
	return res, nil
}
