package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/repository"
)

type fixedSymbols struct {
	syms []string
	err  error
}

func (f fixedSymbols) Symbols(context.Context) ([]string, error) { return f.syms, f.err }

type fakeSource struct{ failing map[string]error }

func (f fakeSource) Position(_ context.Context, symbol, _ string) (models.PositionSignal, error) {
	if err := f.failing[symbol]; err != nil {
		return models.PositionSignal{}, err
	}
	return models.PositionSignal{Symbol: symbol, Strategy: models.StrategyEMA, Windows: []int{5}, Position: models.Long}, nil
}

func TestPositionRecorder_OneRowPerSymbolPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, sym := range []string{"MSFT", "AAPL"} {
		_, err := f.svc.Resolve(ctx, sym, "")
		require.NoError(t, err)
	}

	positions := repository.NewMemoryPositionStore()
	rec := NewPositionRecorder(f.svc, f.store, positions, nil)
	rec.now = func() time.Time { return time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC) }

	report, err := rec.RecordAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	require.Len(t, report.Recorded, 2)
	assert.Equal(t, "AAPL", report.Recorded[0].Symbol, "symbols are visited in order")
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), report.Day)

	rows := positions.Positions("AAPL")
	require.Len(t, rows, 1)
	assert.Equal(t, report.Day, rows[0].RecordedOn)
	want, err := f.svc.Position(ctx, "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, want, rows[0].PositionSignal)

	_, err = rec.RecordAll(ctx)
	require.NoError(t, err)
	assert.Len(t, positions.Positions("AAPL"), 1, "a second run on the same day replaces the row")

	rec.now = func() time.Time { return time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC) }
	_, err = rec.RecordAll(ctx)
	require.NoError(t, err)
	assert.Len(t, positions.Positions("AAPL"), 2)
}

func TestPositionRecorder_ContinuesPastFailures(t *testing.T) {
	boom := errors.New("history down")
	positions := repository.NewMemoryPositionStore()
	rec := NewPositionRecorder(
		fakeSource{failing: map[string]error{"AAA": boom}},
		fixedSymbols{syms: []string{"AAA", "BBB"}},
		positions, nil,
	)

	report, err := rec.RecordAll(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, report.Failed["AAA"], boom)
	require.Len(t, report.Recorded, 1)
	assert.Equal(t, "BBB", report.Recorded[0].Symbol)
	assert.Empty(t, positions.Positions("AAA"))
	assert.Len(t, positions.Positions("BBB"), 1)
}

func TestPositionRecorder_ListFailure(t *testing.T) {
	rec := NewPositionRecorder(fakeSource{}, fixedSymbols{err: errors.New("clickhouse down")},
		repository.NewMemoryPositionStore(), nil)

	_, err := rec.RecordAll(context.Background())
	assert.Error(t, err)
}
