package backtest

import (
	"fmt"

	"WindowOpt/internal/domain/models"
)

// Stances is the stateless daily rule over execution prices: LONG on every bar where
// the price sits strictly above its moving average (or the fast SMA above the slow one
// for the dual rule), FLAT otherwise, including warmup bars.
//
// Unlike the simulator it keeps no position between bars, and the EMA rule reads in the
// plain price-above-average direction.
func Stances(prices []float64, rule Rule) ([]models.Position, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	var above func(i int) bool
	switch rule.Kind {
	case models.StrategySingleSMA:
		ma := SMA(prices, rule.Windows[0])
		above = func(i int) bool { return defined(ma[i]) && prices[i] > ma[i] }
	case models.StrategyDualSMA:
		fast, slow := SMA(prices, rule.Windows[0]), SMA(prices, rule.Windows[1])
		above = func(i int) bool { return defined(fast[i]) && defined(slow[i]) && fast[i] > slow[i] }
	default:
		ma := EMA(prices, rule.Windows[0])
		above = func(i int) bool { return defined(ma[i]) && prices[i] > ma[i] }
	}

	out := make([]models.Position, len(prices))
	for i := range prices {
		if above(i) {
			out[i] = models.Long
		}
	}
	return out, nil
}

// CurrentPosition applies Stances for the result's rule to the execution prices of s and
// reports the last bar that has one, with whether the stance differs from the bar before.
func CurrentPosition(s models.Series, r models.OptimizationResult) (models.PositionSignal, error) {
	n := s.Evaluable()
	if n == 0 {
		return models.PositionSignal{}, fmt.Errorf("position %s: %w", s.Symbol(), models.ErrInsufficientHistory)
	}

	prices := make([]float64, n)
	for i := range prices {
		prices[i], _ = s.ExecutionPrice(i)
	}
	stances, err := Stances(prices, RuleFor(r))
	if err != nil {
		return models.PositionSignal{}, fmt.Errorf("position %s: %w", s.Symbol(), err)
	}

	last := n - 1
	prev := models.Flat
	if last > 0 {
		prev = stances[last-1]
	}

	return models.PositionSignal{
		Symbol:              s.Symbol(),
		Date:                s.Bar(last).Date,
		Strategy:            r.Kind,
		Windows:             append([]int(nil), r.Windows...),
		Multiple:            r.Multiple,
		Position:            stances[last],
		ExecutionPrice:      prices[last],
		ChangedFromPrevious: stances[last] != prev,
	}, nil
}
