package backtest

import (
	"fmt"

	"WindowOpt/internal/domain/models"
)

// Rule is a strategy kind with its window parameters.
type Rule struct {
	Kind    models.StrategyKind
	Windows []int
}

func SingleRule(n int) Rule        { return Rule{Kind: models.StrategySingleSMA, Windows: []int{n}} }
func DualRule(fast, slow int) Rule { return Rule{Kind: models.StrategyDualSMA, Windows: []int{fast, slow}} }
func EMARule(n int) Rule           { return Rule{Kind: models.StrategyEMA, Windows: []int{n}} }

// RuleFor rebuilds the rule behind a stored result.
func RuleFor(r models.OptimizationResult) Rule {
	return Rule{Kind: r.Kind, Windows: append([]int(nil), r.Windows...)}
}

func (r Rule) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown strategy kind %q", r.Kind)
	}
	if len(r.Windows) != r.Kind.WindowCount() {
		return fmt.Errorf("%s takes %d window(s), got %d", r.Kind, r.Kind.WindowCount(), len(r.Windows))
	}
	for _, w := range r.Windows {
		if w <= 0 {
			return fmt.Errorf("%s: window must be positive, got %d", r.Kind, w)
		}
	}
	return nil
}

// MaxWindow is the longest lookback the rule needs.
func (r Rule) MaxWindow() int {
	m := 0
	for _, w := range r.Windows {
		if w > m {
			m = w
		}
	}
	return m
}

// IndicatorSet holds the close series and memoized moving averages for one Series.
// Prepare everything a sweep needs before sharing the set across goroutines;
// after that it is only read.
type IndicatorSet struct {
	closes []float64
	sma    map[int][]float64
	ema    map[int][]float64
}

func NewIndicatorSet(s models.Series) *IndicatorSet {
	return &IndicatorSet{
		closes: s.Closes(),
		sma:    make(map[int][]float64),
		ema:    make(map[int][]float64),
	}
}

// PrepareSMA computes and stores SMAs for windows. Not safe for concurrent use.
func (x *IndicatorSet) PrepareSMA(windows ...int) {
	for _, w := range windows {
		if _, ok := x.sma[w]; !ok {
			x.sma[w] = SMA(x.closes, w)
		}
	}
}

// PrepareEMA computes and stores EMAs for windows. Not safe for concurrent use.
func (x *IndicatorSet) PrepareEMA(windows ...int) {
	for _, w := range windows {
		if _, ok := x.ema[w]; !ok {
			x.ema[w] = EMA(x.closes, w)
		}
	}
}

// SMA returns the stored average or computes an unstored one.
func (x *IndicatorSet) SMA(n int) []float64 {
	if v, ok := x.sma[n]; ok {
		return v
	}
	return SMA(x.closes, n)
}

func (x *IndicatorSet) EMA(n int) []float64 {
	if v, ok := x.ema[n]; ok {
		return v
	}
	return EMA(x.closes, n)
}

func (x *IndicatorSet) Closes() []float64 { return x.closes }

// Comparator builds the signal for rule.
func (x *IndicatorSet) Comparator(rule Rule) (Comparator, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	switch rule.Kind {
	case models.StrategySingleSMA:
		return PriceAboveSMA(x.closes, x.SMA(rule.Windows[0])), nil
	case models.StrategyDualSMA:
		return FastAboveSlow(x.SMA(rule.Windows[0]), x.SMA(rule.Windows[1])), nil
	default:
		return EMAAbovePrice(x.EMA(rule.Windows[0]), x.closes), nil
	}
}

// Backtest runs rule over s once.
func Backtest(s models.Series, rule Rule) (Outcome, error) {
	cmp, err := NewIndicatorSet(s).Comparator(rule)
	if err != nil {
		return Outcome{}, err
	}
	return Simulate(s, cmp), nil
}
