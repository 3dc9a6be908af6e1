package backtest

import (
	"fmt"

	"WindowOpt/internal/domain/models"
)

// Annotate derives the chartable series for an optimization: moving averages at the
// optimum windows plus the position each strategy held per bar. The input is not modified.
func Annotate(s models.Series, opt models.SymbolOptimization) (models.AnnotatedSeries, error) {
	x := NewIndicatorSet(s)

	traces := make(map[models.StrategyKind][]models.Position, 3)
	for _, r := range opt.Results() {
		cmp, err := x.Comparator(RuleFor(r))
		if err != nil {
			return models.AnnotatedSeries{}, fmt.Errorf("annotate %s: %w", r.Kind, err)
		}
		traces[r.Kind] = Trace(s, cmp)
	}

	single := x.SMA(opt.Single.Window(0))
	fast := x.SMA(opt.Dual.Window(0))
	slow := x.SMA(opt.Dual.Window(1))
	ema := x.EMA(opt.Exponential.Window(0))

	bars := make([]models.AnnotatedBar, s.Len())
	for i := range bars {
		b := s.Bar(i)
		row := models.AnnotatedBar{
			Date:           b.Date,
			Open:           b.Open,
			High:           b.High,
			Low:            b.Low,
			Close:          b.Close,
			Volume:         b.Volume,
			SingleSMA:      valueAt(single, i),
			DualFast:       valueAt(fast, i),
			DualSlow:       valueAt(slow, i),
			EMA:            valueAt(ema, i),
			SinglePosition: traces[models.StrategySingleSMA][i],
			DualPosition:   traces[models.StrategyDualSMA][i],
			EMAPosition:    traces[models.StrategyEMA][i],
		}
		if p, ok := s.ExecutionPrice(i); ok {
			row.ExecutionPrice = &p
		}
		bars[i] = row
	}

	return models.AnnotatedSeries{
		Symbol:       s.Symbol(),
		Period:       opt.Period,
		Optimization: opt,
		Bars:         bars,
	}, nil
}

func valueAt(x []float64, i int) *float64 {
	if i >= len(x) || !defined(x[i]) {
		return nil
	}
	v := x[i]
	return &v
}
