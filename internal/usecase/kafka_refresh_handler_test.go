package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WindowOpt/internal/domain/models"
	pkgkafka "WindowOpt/pkg/kafka"
	"WindowOpt/pkg/queue"
)

type stubRefresher struct {
	err error
	got []models.RefreshMessage
}

func (r *stubRefresher) Refresh(_ context.Context, symbol, period string) (models.SymbolOptimization, error) {
	r.got = append(r.got, models.RefreshMessage{Symbol: symbol, Period: period})
	if r.err != nil {
		return models.SymbolOptimization{}, r.err
	}
	return models.SymbolOptimization{Symbol: symbol, Period: period}, nil
}

func TestKafkaRefreshHandler_Decodes(t *testing.T) {
	r := &stubRefresher{}
	h := NewKafkaRefreshHandler("optimization-refresh", r, nil, nil)
	assert.Equal(t, "optimization-refresh", h.Topic())

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"AAPL","period":"6mo"}`)))
	require.NoError(t, h.Handle(ctx, []byte(`"MSFT"`)))

	assert.Equal(t, []models.RefreshMessage{
		{Symbol: "AAPL", Period: "6mo"},
		{Symbol: "MSFT"},
	}, r.got)
}

func TestKafkaRefreshHandler_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		err      error
		wantNil  bool
		wantSkip bool
	}{
		{name: "garbage", payload: `{not json`, wantSkip: true},
		{name: "missing symbol", payload: `{"period":"1y"}`, wantSkip: true},
		{name: "busy", payload: `"AAPL"`, err: fmt.Errorf("AAPL: %w", models.ErrRefreshInProgress), wantNil: true},
		{name: "invalid symbol", payload: `"A A"`, err: models.ErrInvalidSymbol, wantSkip: true},
		{name: "invalid period", payload: `{"symbol":"AAPL","period":"9x"}`, err: models.ErrInvalidPeriod, wantSkip: true},
		{name: "upstream retried", payload: `"AAPL"`, err: models.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewKafkaRefreshHandler("t", &stubRefresher{err: tt.err}, nil, nil)
			err := h.Handle(context.Background(), []byte(tt.payload))
			switch {
			case tt.wantNil:
				assert.NoError(t, err)
			case tt.wantSkip:
				assert.ErrorIs(t, err, pkgkafka.ErrSkip)
			default:
				require.Error(t, err)
				assert.False(t, errors.Is(err, pkgkafka.ErrSkip))
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestRefreshJob(t *testing.T) {
	r := &stubRefresher{}
	job := NewRefreshJob(r, nil, nil)
	assert.Equal(t, RefreshJobType, job.Type())

	ctx := context.Background()
	require.NoError(t, job.Handle(ctx, []byte(`{"symbol":"NVDA","period":"1y"}`)))
	assert.Equal(t, []models.RefreshMessage{{Symbol: "NVDA", Period: "1y"}}, r.got)

	err := job.Handle(ctx, []byte(`[]`))
	assert.ErrorIs(t, err, queue.ErrDiscard)

	r.err = models.ErrUpstreamUnavailable
	err = job.Handle(ctx, []byte(`"NVDA"`))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.False(t, errors.Is(err, queue.ErrDiscard))
}
