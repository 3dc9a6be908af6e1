package usecase

import (
	"context"
	"fmt"
	"time"

	"WindowOpt/internal/domain/models"
	drepo "WindowOpt/internal/domain/repository"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/util"
)

// PositionSource computes the current signal for one symbol.
type PositionSource interface {
	Position(ctx context.Context, symbol, period string) (models.PositionSignal, error)
}

// SymbolLister enumerates the symbols that have a stored optimization.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// PositionReport summarizes one RecordAll run.
type PositionReport struct {
	Day      time.Time
	Recorded []models.PositionRecord
	Failed   map[string]error
}

// PositionRecorder writes one positions-log row per optimized symbol per day.
type PositionRecorder struct {
	src     PositionSource
	symbols SymbolLister
	store   drepo.PositionStore
	now     func() time.Time
	l       *applogger.Logger
}

func NewPositionRecorder(src PositionSource, symbols SymbolLister, store drepo.PositionStore, l *applogger.Logger) *PositionRecorder {
	return &PositionRecorder{src: src, symbols: symbols, store: store, now: time.Now, l: l}
}

// RecordAll computes and saves the signal of every stored symbol, moving past
// per-symbol failures. The error is non-nil only when the symbols cannot be listed.
func (r *PositionRecorder) RecordAll(ctx context.Context) (PositionReport, error) {
	syms, err := r.symbols.Symbols(ctx)
	if err != nil {
		return PositionReport{}, fmt.Errorf("list symbols: %w", err)
	}

	report := PositionReport{Day: util.TruncateDay(r.now()), Failed: make(map[string]error)}
	for _, sym := range syms {
		if err := ctx.Err(); err != nil {
			report.Failed[sym] = err
			continue
		}
		rec, err := r.record(ctx, sym, report.Day)
		if err != nil {
			report.Failed[sym] = err
			if r.l != nil {
				r.l.Warn("position not recorded", applogger.String("symbol", sym), applogger.Error(err))
			}
			continue
		}
		report.Recorded = append(report.Recorded, rec)
	}

	if r.l != nil {
		r.l.Info("positions recorded",
			applogger.Int("recorded", len(report.Recorded)),
			applogger.Int("failed", len(report.Failed)))
	}
	return report, nil
}

func (r *PositionRecorder) record(ctx context.Context, sym string, day time.Time) (models.PositionRecord, error) {
	sig, err := r.src.Position(ctx, sym, "")
	if err != nil {
		return models.PositionRecord{}, err
	}
	rec := models.PositionRecord{PositionSignal: sig, RecordedOn: day}
	if err := r.store.SavePosition(ctx, rec); err != nil {
		return models.PositionRecord{}, err
	}
	return rec, nil
}
