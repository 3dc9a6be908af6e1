package repository

import (
	"context"
	"time"

	"WindowOpt/internal/domain/models"
)

// PriceHistory provides ascending, deduplicated daily bars for a symbol over a named lookback.
type PriceHistory interface {
	History(ctx context.Context, symbol, period string) ([]models.Bar, error)
}

// BarArchive keeps fetched bars for replay and offline runs.
type BarArchive interface {
	StoreBars(ctx context.Context, symbol string, bars []models.Bar) error
}

// ResultStore persists the current optimization per symbol.
type ResultStore interface {
	Init(ctx context.Context) error // ensure tables
	// Get returns models.ErrNotFound when no row exists for symbol.
	Get(ctx context.Context, symbol string) (models.SymbolOptimization, error)
	// Upsert replaces the row for rec.Symbol, inserting when absent. existed reports a prior row.
	Upsert(ctx context.Context, rec models.SymbolOptimization) (existed bool, err error)
	// Symbols lists every stored symbol in ascending order.
	Symbols(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

// ResultCache is a read-through cache in front of the ResultStore.
type ResultCache interface {
	Get(ctx context.Context, symbol string) (models.SymbolOptimization, bool, error)
	Set(ctx context.Context, rec models.SymbolOptimization, ttl time.Duration) error
}

// PositionStore keeps the daily positions log, one row per symbol and day.
// Saving the same symbol twice on one day replaces the earlier row.
type PositionStore interface {
	SavePosition(ctx context.Context, rec models.PositionRecord) error
}

// RefreshLocker guards a symbol's recomputation across instances.
type RefreshLocker interface {
	TryLock(ctx context.Context, symbol string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, symbol, token string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev models.OptimizationEvent) error
	Close() error
}

type Metrics interface {
	RecordSweep(kind string, candidates int, seconds float64)
	RecordRefresh(symbol, outcome string)
	RecordCache(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
