package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WindowOpt/internal/domain/models"
)

func alternatingOptimization() models.SymbolOptimization {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return models.NewSymbolOptimization("TEST", "12mo", 1.1, at,
		models.OptimizationResult{Kind: models.StrategySingleSMA, Windows: []int{2}, Multiple: 0.92},
		models.OptimizationResult{Kind: models.StrategyDualSMA, Windows: []int{2, 3}, Multiple: 1},
		models.OptimizationResult{Kind: models.StrategyEMA, Windows: []int{3}, Multiple: 1},
	)
}

func TestAnnotate(t *testing.T) {
	s := alternatingSeries(t)
	before := s.Bars()

	got, err := Annotate(s, alternatingOptimization())
	require.NoError(t, err)
	require.Len(t, got.Bars, s.Len())
	assert.Equal(t, "TEST", got.Symbol)
	assert.Equal(t, "12mo", got.Period)

	first, last := got.Bars[0], got.Bars[len(got.Bars)-1]
	assert.Nil(t, first.SingleSMA, "SMA(2) undefined on bar 0")
	assert.Nil(t, first.DualSlow)
	require.NotNil(t, first.EMA, "EMA is seeded on bar 0")
	assert.Equal(t, 100.0, *first.EMA)
	require.NotNil(t, first.ExecutionPrice)
	assert.Equal(t, 105.0, *first.ExecutionPrice)

	assert.Nil(t, last.ExecutionPrice)
	require.NotNil(t, got.Bars[1].SingleSMA)
	assert.Equal(t, 105.0, *got.Bars[1].SingleSMA)
	assert.Nil(t, got.Bars[1].DualSlow)
	require.NotNil(t, got.Bars[2].DualSlow)

	assert.Equal(t, models.Long, got.Bars[1].SinglePosition)
	assert.Equal(t, models.Flat, got.Bars[2].SinglePosition)

	assert.Equal(t, before, s.Bars(), "input series must not change")
}

func TestAnnotate_InvalidResult(t *testing.T) {
	opt := alternatingOptimization()
	opt.Dual.Windows = []int{5}

	_, err := Annotate(alternatingSeries(t), opt)
	assert.Error(t, err)
}
