package backtest

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WindowOpt/internal/domain/models"
)

func makeSeries(t *testing.T, opens, closes []float64) models.Series {
	t.Helper()
	require.Equal(t, len(opens), len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i := range closes {
		bars[i] = models.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   opens[i],
			High:   math.Max(opens[i], closes[i]),
			Low:    math.Min(opens[i], closes[i]),
			Close:  closes[i],
			Volume: 1000,
		}
	}
	s, err := models.NewSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func alternatingSeries(t *testing.T) models.Series {
	return makeSeries(t,
		[]float64{100, 105, 108, 102, 107, 104},
		[]float64{100, 110, 100, 110, 100, 110},
	)
}

func rampSeries(t *testing.T, n int) models.Series {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return makeSeries(t, prices, prices)
}

func TestSimulate_AlternatingSeries(t *testing.T) {
	s := alternatingSeries(t)

	// SMA(2) sits at 105 from bar 1 on, so every bar crosses it.
	// Cycle 1: enter at open[2]=108, exit at open[3]=102.
	// Cycle 2: enter at open[4]=107, exit at open[5]=104.
	out, err := Backtest(s, SingleRule(2))
	require.NoError(t, err)

	expected := (102.0 / 108.0) * (104.0 / 107.0)
	assert.InDelta(t, expected, out.Multiple, 1e-6)
	assert.InDelta(t, 0.917965, out.Multiple, 1e-6)
	assert.Equal(t, 2, out.Trades)
	assert.False(t, out.Open)
}

func TestSimulate_RampNeverExits(t *testing.T) {
	s := rampSeries(t, 50)

	for _, n := range []int{2, 5, 20} {
		out, err := Backtest(s, SingleRule(n))
		require.NoError(t, err)
		assert.Equal(t, 0, out.Trades, "window %d", n)
		assert.Equal(t, 1.0, out.Multiple, "window %d", n)
		assert.True(t, out.Open, "window %d should end holding a discarded position", n)
	}
}

func TestSimulate_WindowLongerThanSeries(t *testing.T) {
	s := rampSeries(t, 10)

	for _, rule := range []Rule{SingleRule(11), SingleRule(365), DualRule(5, 40), EMARule(400)} {
		out, err := Backtest(s, rule)
		require.NoError(t, err)
		if rule.Kind == models.StrategyEMA {
			// EMA is defined from bar 0 and always trails a ramp, so it never enters.
			assert.Equal(t, 0, out.Trades)
		}
		assert.Equal(t, 1.0, out.Multiple, "%s %v", rule.Kind, rule.Windows)
	}
}

func TestSimulate_EMAInvertedEntry(t *testing.T) {
	prices := []float64{100, 90, 80, 90, 100, 110}
	s := makeSeries(t, prices, prices)

	// span 3 -> alpha 0.5: 100, 95, 87.5, 88.75, 94.375, ...
	// bar 1: EMA above close -> enter at 80; bar 3: EMA below close -> exit at 100.
	out, err := Backtest(s, EMARule(3))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Trades)
	assert.InDelta(t, 1.25, out.Multiple, 1e-9)
	assert.InDelta(t, 25.0, out.Report(models.ReportPercentage), 1e-9)
	assert.InDelta(t, 1.25, out.Report(models.ReportMultiple), 1e-9)
}

func TestSimulate_EqualityHoldsPosition(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}
	s := makeSeries(t, prices, prices)

	signs := []int{1, 0, 0, 0, -1}
	cmp := func(i int) (int, bool) { return signs[i], true }

	out := Simulate(s, cmp)
	assert.Equal(t, 1, out.Trades)
	assert.InDelta(t, 15.0/11.0, out.Multiple, 1e-9)

	never := func(int) (int, bool) { return 0, true }
	assert.Equal(t, Outcome{Multiple: 1}, Simulate(s, never))
}

func TestSimulate_SkipsUndefinedBars(t *testing.T) {
	prices := []float64{10, 11, 12, 13}
	s := makeSeries(t, prices, prices)

	cmp := func(i int) (int, bool) {
		if i < 2 {
			return 1, false
		}
		return 1, true
	}
	trace := Trace(s, cmp)
	assert.Equal(t, []models.Position{models.Flat, models.Flat, models.Long, models.Long}, trace)
}

func TestSimulate_ZeroOpenNeverEnters(t *testing.T) {
	// Bar 0 fills at open[1] = 0, so the first entry waits for bar 1 at 12.
	prices := []float64{10, 0, 12, 15}
	s := makeSeries(t, prices, prices)

	signs := []int{1, 1, -1}
	cmp := func(i int) (int, bool) { return signs[i], true }

	out := Simulate(s, cmp)
	assert.Equal(t, 1, out.Trades)
	assert.InDelta(t, 15.0/12.0, out.Multiple, 1e-9)
	assert.False(t, math.IsInf(out.Multiple, 0))
	assert.Equal(t, []models.Position{models.Flat, models.Long, models.Flat, models.Flat}, Trace(s, cmp))
}

func TestTrace_Alternating(t *testing.T) {
	s := alternatingSeries(t)
	cmp, err := NewIndicatorSet(s).Comparator(SingleRule(2))
	require.NoError(t, err)

	assert.Equal(t, []models.Position{
		models.Flat, models.Long, models.Flat, models.Long, models.Flat, models.Flat,
	}, Trace(s, cmp))
}

func TestSimulate_MultipleNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 300
	opens := make([]float64, n)
	closes := make([]float64, n)
	price := 50.0
	for i := 0; i < n; i++ {
		opens[i] = price
		price *= 1 + (rng.Float64()-0.5)*0.1
		closes[i] = price
	}
	s := makeSeries(t, opens, closes)
	x := NewIndicatorSet(s)

	for w := 1; w <= 60; w++ {
		for _, rule := range []Rule{SingleRule(w), EMARule(w), DualRule(w, w+7)} {
			cmp, err := x.Comparator(rule)
			require.NoError(t, err)
			out := Simulate(s, cmp)
			assert.GreaterOrEqual(t, out.Multiple, 0.0, "%s %v", rule.Kind, rule.Windows)
		}
	}
}

func TestSimulate_ShortSeries(t *testing.T) {
	one := makeSeries(t, []float64{10}, []float64{10})
	out, err := Backtest(one, SingleRule(1))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Multiple: 1}, out)

	empty, err := models.NewSeries("EMPTY", nil)
	require.NoError(t, err)
	assert.Empty(t, Trace(empty, func(int) (int, bool) { return 1, true }))
}

func TestRule_Validate(t *testing.T) {
	assert.NoError(t, SingleRule(1).Validate())
	assert.NoError(t, DualRule(10, 20).Validate())
	assert.Error(t, SingleRule(0).Validate())
	assert.Error(t, Rule{Kind: models.StrategyDualSMA, Windows: []int{10}}.Validate())
	assert.Error(t, Rule{Kind: "macd", Windows: []int{10}}.Validate())
	assert.Equal(t, 40, DualRule(40, 10).MaxWindow())
}
