package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WindowOpt/internal/domain/models"
	"WindowOpt/pkg/cache"
)

func sampleRecord(symbol string) models.SymbolOptimization {
	at := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	return models.NewSymbolOptimization(symbol, "12mo", 1.183920114, at,
		models.OptimizationResult{Kind: models.StrategySingleSMA, Windows: []int{35}, Multiple: 1.412857143},
		models.OptimizationResult{Kind: models.StrategyDualSMA, Windows: []int{10, 20}, Multiple: 1.297000001},
		models.OptimizationResult{Kind: models.StrategyEMA, Windows: []int{15}, Multiple: 1.0500000007},
	).WithRunID("run-1")
}

func assertSameRecord(t *testing.T, want, got models.SymbolOptimization) {
	t.Helper()
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.Period, got.Period)
	assert.InDelta(t, want.OrganicGrowth, got.OrganicGrowth, 1e-6)
	for i, w := range want.Results() {
		g := got.Results()[i]
		assert.Equal(t, w.Kind, g.Kind)
		assert.Equal(t, w.Windows, g.Windows)
		assert.InDelta(t, w.Multiple, g.Multiple, 1e-6)
	}
}

func TestMemoryResultStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryResultStore()

	_, err := s.Get(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrNotFound)

	rec := sampleRecord("AAPL")
	existed, err := s.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.False(t, existed)

	got, err := s.Get(ctx, "AAPL")
	require.NoError(t, err)
	assertSameRecord(t, rec, got)

	got.Dual.Windows[0] = 99
	again, err := s.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, again.Dual.Windows, "callers cannot mutate the stored row")

	rec.Single.Windows = []int{40}
	existed, err = s.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, 1, s.Len(), "one row per symbol")
}

func TestMemoryResultStore_Symbols(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryResultStore()

	syms, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Empty(t, syms)

	for _, sym := range []string{"MSFT", "AAPL", "GOOG"} {
		_, err := s.Upsert(ctx, sampleRecord(sym))
		require.NoError(t, err)
	}
	syms, err = s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, syms)
}

func TestMemoryPositionStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPositionStore()
	row := func(day int, pos models.Position) models.PositionRecord {
		return models.PositionRecord{
			PositionSignal: models.PositionSignal{Symbol: "AAPL", Windows: []int{15}, Position: pos},
			RecordedOn:     time.Date(2024, 6, day, 18, 0, 0, 0, time.UTC),
		}
	}

	require.NoError(t, s.SavePosition(ctx, row(11, models.Long)))
	require.NoError(t, s.SavePosition(ctx, row(10, models.Flat)))
	require.NoError(t, s.SavePosition(ctx, row(11, models.Flat)))

	got := s.Positions("AAPL")
	require.Len(t, got, 2, "same day replaces")
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), got[0].RecordedOn)
	assert.Equal(t, models.Flat, got[1].Position)
	assert.Empty(t, s.Positions("MSFT"))
}

func TestCachedResults_RoundTripAndLock(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	r := NewCachedResults(mc)

	_, ok, err := r.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := sampleRecord("MSFT")
	require.NoError(t, r.Set(ctx, rec, time.Minute))
	got, ok, err := r.Get(ctx, "MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assertSameRecord(t, rec, got)
	assert.Equal(t, "run-1", got.RunID)

	require.NoError(t, mc.Delete(ctx, cache.Key(optimizationKeyPrefix, "MSFT")))
	_, ok, err = r.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	token, ok, err := r.TryLock(ctx, "MSFT", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = r.TryLock(ctx, "MSFT", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, r.Unlock(ctx, "MSFT", token))
}

type recordingProducer struct {
	topic   string
	key     []byte
	value   interface{}
	headers []kafka.Header
	err     error
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error {
	p.topic, p.key, p.value, p.headers = topic, key, value, headers
	return p.err
}

func (p *recordingProducer) Close() error { return nil }

func TestKafkaResultPublisher(t *testing.T) {
	p := &recordingProducer{}
	pub := NewKafkaResultPublisher(p, "optimizations")
	ev := models.OptimizationEvent{RunID: "run-7", Optimization: sampleRecord("NVDA"), Trigger: "refresh"}

	require.NoError(t, pub.Publish(context.Background(), ev))
	assert.Equal(t, "optimizations", p.topic)
	assert.Equal(t, []byte("NVDA"), p.key)
	assert.Equal(t, ev, p.value)
	assert.Equal(t, []kafka.Header{
		{Key: "trace_id", Value: []byte("run-7")},
		{Key: "trigger", Value: []byte("refresh")},
	}, p.headers)

	p.err = errors.New("broker down")
	assert.Error(t, pub.Publish(context.Background(), ev))
}
