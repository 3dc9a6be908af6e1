package optimizer

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/services/backtest"
)

func walkSeries(t *testing.T, n int, seed int64) models.Series {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := 100.0
	for i := range bars {
		open := price * (1 + (rng.Float64()-0.5)*0.01)
		price = open * (1 + (rng.Float64()-0.48)*0.04)
		bars[i] = models.Bar{Date: start.AddDate(0, 0, i), Open: open, High: open, Low: price, Close: price}
	}
	s, err := models.NewSeries("WALK", bars)
	require.NoError(t, err)
	return s
}

func rampSeries(t *testing.T, n int) models.Series {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		p := 10 + float64(i)
		bars[i] = models.Bar{Date: start.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p}
	}
	s, err := models.NewSeries("RAMP", bars)
	require.NoError(t, err)
	return s
}

func TestGrids(t *testing.T) {
	g1, err := SingleGrid(1)
	require.NoError(t, err)
	v := g1.Values()
	assert.Len(t, v, 365)
	assert.Equal(t, 1, v[0])
	assert.Equal(t, 365, v[len(v)-1])

	g5, err := SingleGrid(5)
	require.NoError(t, err)
	v = g5.Values()
	assert.Len(t, v, 73)
	assert.Equal(t, 5, v[0])
	assert.Equal(t, 365, v[len(v)-1])

	_, err = SingleGrid(3)
	assert.Error(t, err)

	assert.Equal(t, 71, DualGrid.Len())
	assert.Equal(t, 73, EMAGrid.Len())
	assert.Equal(t, 71*70, NewDual().Candidates())
	assert.Empty(t, Grid{Start: 5, Stop: 1, Step: 1}.Values())
}

func TestSingle_MatchesSequentialScan(t *testing.T) {
	s := walkSeries(t, 250, 7)
	opt, err := NewSingle(1, WithWorkers(8))
	require.NoError(t, err)

	got, err := opt.Optimize(context.Background(), s)
	require.NoError(t, err)

	bestW, bestM := 0, -1.0
	for w := 1; w <= 365; w++ {
		m := 0.0
		if w < s.Len() {
			out, err := backtest.Backtest(s, backtest.SingleRule(w))
			require.NoError(t, err)
			m = out.Multiple
		}
		if m > bestM {
			bestW, bestM = w, m
		}
	}

	assert.Equal(t, models.StrategySingleSMA, got.Kind)
	assert.Equal(t, []int{bestW}, got.Windows)
	assert.InDelta(t, bestM, got.Multiple, 1e-12)
	assert.InDelta(t, s.OrganicGrowth(), got.OrganicGrowth, 1e-12)
}

func TestSingle_TiesPickFirstWindow(t *testing.T) {
	s := rampSeries(t, 60)

	for step, want := range map[int]int{1: 1, 5: 5} {
		opt, err := NewSingle(step)
		require.NoError(t, err)
		got, err := opt.Optimize(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, []int{want}, got.Windows, "step %d", step)
		assert.Equal(t, 1.0, got.Multiple)
	}
}

func TestSingle_ShortSeriesScoresZero(t *testing.T) {
	s := rampSeries(t, 3)
	opt, err := NewSingle(5)
	require.NoError(t, err)

	got, err := opt.Optimize(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, got.Windows)
	assert.Equal(t, 0.0, got.Multiple)
}

func TestExponential_MatchesSequentialScan(t *testing.T) {
	s := walkSeries(t, 400, 11)
	got, err := NewExponential(WithWorkers(3)).Optimize(context.Background(), s)
	require.NoError(t, err)

	bestW, bestM := 0, -1.0
	for _, w := range EMAGrid.Values() {
		out, err := backtest.Backtest(s, backtest.EMARule(w))
		require.NoError(t, err)
		if out.Multiple > bestM {
			bestW, bestM = w, out.Multiple
		}
	}
	assert.Equal(t, models.StrategyEMA, got.Kind)
	assert.Equal(t, []int{bestW}, got.Windows)
	assert.InDelta(t, bestM, got.Multiple, 1e-12)
}

func TestDual_SeededPairWins(t *testing.T) {
	d := NewDual(WithWorkers(4))
	d.score = func(_ models.Series, _ *backtest.IndicatorSet, fast, slow int) float64 {
		if fast == 10 && slow == 20 {
			return 3.5
		}
		return 1 + float64(fast+slow)/10000
	}

	got, err := d.Optimize(context.Background(), walkSeries(t, 50, 1))
	require.NoError(t, err)
	assert.Equal(t, models.StrategyDualSMA, got.Kind)
	assert.Equal(t, []int{10, 20}, got.Windows)
	assert.Equal(t, 3.5, got.Multiple)
}

func TestDual_TiesAreRowMajorFastFirst(t *testing.T) {
	d := NewDual()
	d.score = func(_ models.Series, _ *backtest.IndicatorSet, fast, slow int) float64 {
		switch {
		case fast == 30 && slow == 15, fast == 15 && slow == 40, fast == 15 && slow == 20:
			return 2
		default:
			return 1
		}
	}

	got, err := d.Optimize(context.Background(), walkSeries(t, 50, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{15, 20}, got.Windows)
}

func TestDual_SkipsDiagonal(t *testing.T) {
	d := NewDual(WithGrid(Grid{Start: 10, Stop: 30, Step: 5}))
	var mu sync.Mutex
	calls := 0
	d.score = func(_ models.Series, _ *backtest.IndicatorSet, fast, slow int) float64 {
		mu.Lock()
		calls++
		mu.Unlock()
		assert.NotEqual(t, fast, slow)
		return 1
	}

	surf, err := d.Surface(context.Background(), walkSeries(t, 50, 3))
	require.NoError(t, err)
	assert.Equal(t, 5*4, calls)
	for i := range surf.Fast {
		assert.Equal(t, 0.0, surf.Values[i][i])
	}
	fast, slow, m, ok := surf.Best()
	require.True(t, ok)
	assert.Equal(t, 10, fast)
	assert.Equal(t, 15, slow)
	assert.Equal(t, 1.0, m)
}

func TestDual_MatchesSequentialScan(t *testing.T) {
	s := walkSeries(t, 200, 5)
	g := Grid{Start: 10, Stop: 120, Step: 10}
	got, err := NewDual(WithGrid(g), WithWorkers(6)).Optimize(context.Background(), s)
	require.NoError(t, err)

	var best []int
	bestM := -1.0
	for _, f := range g.Values() {
		for _, sl := range g.Values() {
			if f == sl {
				continue
			}
			out, err := backtest.Backtest(s, backtest.DualRule(f, sl))
			require.NoError(t, err)
			if out.Multiple > bestM {
				best, bestM = []int{f, sl}, out.Multiple
			}
		}
	}
	assert.Equal(t, best, got.Windows)
	assert.InDelta(t, bestM, got.Multiple, 1e-12)
}

func TestDual_InsufficientHistory(t *testing.T) {
	got, err := NewDual().Optimize(context.Background(), walkSeries(t, 30, 9))
	require.NoError(t, err)
	assert.Less(t, got.Windows[0], 30)
	assert.Less(t, got.Windows[1], 30)

	got, err = NewDual().Optimize(context.Background(), walkSeries(t, 8, 9))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 15}, got.Windows)
	assert.Equal(t, 0.0, got.Multiple)
}

func TestSweep_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExponential().Optimize(ctx, walkSeries(t, 100, 4))
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	d := NewDual(WithWorkers(2))
	d.score = func(models.Series, *backtest.IndicatorSet, int, int) float64 {
		cancel()
		return 1
	}
	_, err = d.Optimize(ctx, walkSeries(t, 100, 4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweep_EmptyGrid(t *testing.T) {
	_, err := NewExponential(WithGrid(Grid{Start: 10, Stop: 5, Step: 5})).Optimize(context.Background(), walkSeries(t, 20, 1))
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = NewDual(WithGrid(Grid{Start: 10, Stop: 10, Step: 5})).Optimize(context.Background(), walkSeries(t, 20, 1))
	assert.ErrorIs(t, err, ErrEmptyGrid)
}

func TestSuite_Run(t *testing.T) {
	suite, err := NewSuite(5, WithWorkers(4))
	require.NoError(t, err)

	var kinds []models.StrategyKind
	res, err := suite.Run(context.Background(), walkSeries(t, 120, 21),
		func(kind models.StrategyKind, candidates int, _ time.Duration, err error) {
			assert.NoError(t, err)
			assert.Positive(t, candidates)
			kinds = append(kinds, kind)
		})
	require.NoError(t, err)

	assert.Equal(t, models.StrategyKinds(), kinds)
	assert.Len(t, res.Single.Windows, 1)
	assert.Len(t, res.Dual.Windows, 2)
	assert.Len(t, res.Exponential.Windows, 1)
	assert.NotEqual(t, res.Dual.Windows[0], res.Dual.Windows[1])
}

func TestNew(t *testing.T) {
	for _, k := range models.StrategyKinds() {
		o, err := New(k, 1)
		require.NoError(t, err)
		assert.Equal(t, k, o.Kind())
	}
	_, err := New("macd", 1)
	assert.Error(t, err)
	_, err = New(models.StrategySingleSMA, 2)
	assert.Error(t, err)

	_, err = NewSuite(2)
	assert.Error(t, err, "the suite builds its single optimizer through New")
}
