package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"WindowOpt/internal/domain/models"
	drepo "WindowOpt/internal/domain/repository"
	"WindowOpt/internal/services/backtest"
	"WindowOpt/internal/services/optimizer"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/util"
)

// State is where a symbol sits in the resolve/refresh lifecycle.
type State int

const (
	Unresolved State = iota
	Computing
	Cached
)

func (s State) String() string {
	switch s {
	case Computing:
		return "computing"
	case Cached:
		return "cached"
	default:
		return "unresolved"
	}
}

// Option configures OptimizedSymbolService.
type Option func(*OptimizedSymbolService)

func WithArchive(a drepo.BarArchive) Option {
	return func(s *OptimizedSymbolService) { s.archive = a }
}

func WithCache(c drepo.ResultCache, ttl time.Duration) Option {
	return func(s *OptimizedSymbolService) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRefreshLocker adds a cross-instance lock taken around every refresh.
func WithRefreshLocker(l drepo.RefreshLocker) Option {
	return func(s *OptimizedSymbolService) { s.locker = l }
}

func WithPublisher(p drepo.Publisher) Option {
	return func(s *OptimizedSymbolService) { s.pub = p }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(s *OptimizedSymbolService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(s *OptimizedSymbolService) { s.l = l }
}

// WithSweepTimeout bounds the three sweeps of one computation.
func WithSweepTimeout(d time.Duration) Option {
	return func(s *OptimizedSymbolService) { s.sweepTimeout = d }
}

func WithDefaultPeriod(p string) Option {
	return func(s *OptimizedSymbolService) {
		if p != "" {
			s.defaultPeriod = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *OptimizedSymbolService) { s.now = now }
}

// OptimizedSymbolService resolves, refreshes and persists per-symbol optimizations.
type OptimizedSymbolService struct {
	history drepo.PriceHistory
	store   drepo.ResultStore
	suite   *optimizer.Suite

	archive drepo.BarArchive
	cache   drepo.ResultCache
	locker  drepo.RefreshLocker
	pub     drepo.Publisher
	metrics drepo.Metrics
	l       *applogger.Logger

	cacheTTL      time.Duration
	sweepTimeout  time.Duration
	defaultPeriod string
	now           func() time.Time
	newRunID      func() string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	states map[string]State
}

func NewOptimizedSymbolService(history drepo.PriceHistory, store drepo.ResultStore, suite *optimizer.Suite, opts ...Option) *OptimizedSymbolService {
	s := &OptimizedSymbolService{
		history:       history,
		store:         store,
		suite:         suite,
		metrics:       noopMetrics{},
		cacheTTL:      24 * time.Hour,
		sweepTimeout:  5 * time.Minute,
		defaultPeriod: models.DefaultPeriod,
		now:           time.Now,
		newRunID:      uuid.NewString,
		locks:         make(map[string]*sync.Mutex),
		states:        make(map[string]State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the lifecycle state of symbol in this process.
func (s *OptimizedSymbolService) State(symbol string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[symbol]
}

// Resolve returns the current optimization for symbol, computing and persisting it
// only when neither the cache nor the store holds one.
func (s *OptimizedSymbolService) Resolve(ctx context.Context, symbol, period string) (models.SymbolOptimization, error) {
	sym, period, err := s.normalize(symbol, period)
	if err != nil {
		return models.SymbolOptimization{}, err
	}

	if rec, ok, err := s.lookup(ctx, sym); err != nil || ok {
		return rec, err
	}

	lock := s.symbolLock(sym)
	lock.Lock()
	defer lock.Unlock()

	// another caller may have finished while we waited
	if rec, ok, err := s.lookup(ctx, sym); err != nil || ok {
		return rec, err
	}
	return s.compute(ctx, sym, period, "resolve")
}

// Refresh always recomputes and overwrites the stored optimization for symbol.
// It returns models.ErrRefreshInProgress when another instance holds the refresh lock.
func (s *OptimizedSymbolService) Refresh(ctx context.Context, symbol, period string) (models.SymbolOptimization, error) {
	sym, period, err := s.normalize(symbol, period)
	if err != nil {
		return models.SymbolOptimization{}, err
	}

	lock := s.symbolLock(sym)
	lock.Lock()
	defer lock.Unlock()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sym, s.sweepTimeout+time.Minute)
		if err != nil {
			s.metrics.RecordError("refresh_lock")
			return models.SymbolOptimization{}, fmt.Errorf("refresh lock %s: %w", sym, err)
		}
		if !ok {
			s.metrics.RecordRefresh(sym, "busy")
			return models.SymbolOptimization{}, fmt.Errorf("%s: %w", sym, models.ErrRefreshInProgress)
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), sym, token); err != nil && s.l != nil {
				s.l.Warn("refresh unlock failed", applogger.String("symbol", sym), applogger.Error(err))
			}
		}()
	}

	return s.compute(ctx, sym, period, "refresh")
}

// Series returns the annotated price series for the current optimization of symbol.
func (s *OptimizedSymbolService) Series(ctx context.Context, symbol, period string) (models.AnnotatedSeries, error) {
	rec, series, err := s.resolveWithSeries(ctx, symbol, period)
	if err != nil {
		return models.AnnotatedSeries{}, err
	}
	out, err := backtest.Annotate(series, rec)
	if err != nil {
		return models.AnnotatedSeries{}, fmt.Errorf("annotate %s: %w", rec.Symbol, err)
	}
	return out, nil
}

// Position reports today's stance of the better of the single-SMA and EMA strategies.
func (s *OptimizedSymbolService) Position(ctx context.Context, symbol, period string) (models.PositionSignal, error) {
	rec, series, err := s.resolveWithSeries(ctx, symbol, period)
	if err != nil {
		return models.PositionSignal{}, err
	}
	return backtest.CurrentPosition(series, rec.PreferredForPosition())
}

// resolveWithSeries reads history over the period the stored record was computed on,
// which can differ from the requested one when the record already existed.
func (s *OptimizedSymbolService) resolveWithSeries(ctx context.Context, symbol, period string) (models.SymbolOptimization, models.Series, error) {
	rec, err := s.Resolve(ctx, symbol, period)
	if err != nil {
		return models.SymbolOptimization{}, models.Series{}, err
	}
	series, err := s.fetchSeries(ctx, rec.Symbol, s.periodOr(rec.Period))
	if err != nil {
		return models.SymbolOptimization{}, models.Series{}, err
	}
	return rec, series, nil
}

func (s *OptimizedSymbolService) lookup(ctx context.Context, sym string) (models.SymbolOptimization, bool, error) {
	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, sym)
		switch {
		case err != nil:
			s.metrics.RecordCache("error")
			if s.l != nil {
				s.l.Warn("cache get failed", applogger.String("symbol", sym), applogger.Error(err))
			}
		case ok:
			s.metrics.RecordCache("hit")
			s.setState(sym, Cached)
			return rec, true, nil
		default:
			s.metrics.RecordCache("miss")
		}
	}

	start := time.Now()
	rec, err := s.store.Get(ctx, sym)
	s.metrics.RecordLatency("store_get_seconds", time.Since(start).Seconds())
	if errors.Is(err, models.ErrNotFound) {
		return models.SymbolOptimization{}, false, nil
	}
	if err != nil {
		s.metrics.RecordError("store_get")
		return models.SymbolOptimization{}, false, fmt.Errorf("lookup %s: %w", sym, err)
	}
	s.setState(sym, Cached)
	s.fillCache(ctx, rec)
	return rec, true, nil
}

// compute runs the three sweeps and persists the result. On failure the previous
// state and any stored result are left as they were.
func (s *OptimizedSymbolService) compute(ctx context.Context, sym, period, trigger string) (rec models.SymbolOptimization, err error) {
	prev := s.setState(sym, Computing)
	runID := s.newRunID()
	start := time.Now()
	defer func() {
		if err != nil {
			s.setState(sym, prev)
			s.metrics.RecordRefresh(sym, "error")
			if s.l != nil {
				s.l.Error("optimization failed",
					applogger.String("symbol", sym),
					applogger.String("period", period),
					applogger.String("trigger", trigger),
					applogger.String("run_id", runID),
					applogger.Error(err))
			}
		}
	}()

	series, err := s.fetchSeries(ctx, sym, period)
	if err != nil {
		return models.SymbolOptimization{}, err
	}

	sweepCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.sweepTimeout > 0 {
		sweepCtx, cancel = context.WithTimeout(ctx, s.sweepTimeout)
	}
	res, err := s.suite.Run(sweepCtx, series, func(kind models.StrategyKind, candidates int, took time.Duration, err error) {
		if err == nil {
			s.metrics.RecordSweep(string(kind), candidates, took.Seconds())
		}
	})
	cancel()
	if err != nil {
		return models.SymbolOptimization{}, fmt.Errorf("optimize %s: %w", sym, err)
	}

	at := s.now().UTC().Truncate(time.Microsecond)
	rec = models.NewSymbolOptimization(sym, period, series.OrganicGrowth(), at, res.Single, res.Dual, res.Exponential)
	rec.RunID = runID

	storeStart := time.Now()
	existed, err := s.store.Upsert(ctx, rec)
	s.metrics.RecordLatency("store_upsert_seconds", time.Since(storeStart).Seconds())
	if err != nil {
		s.metrics.RecordError("store_upsert")
		return models.SymbolOptimization{}, fmt.Errorf("persist %s: %w", sym, err)
	}

	s.fillCache(ctx, rec)
	s.publish(ctx, rec, trigger)
	s.setState(sym, Cached)
	s.metrics.RecordRefresh(sym, "ok")
	s.metrics.RecordLatency("optimize_seconds", time.Since(start).Seconds())

	if s.l != nil {
		s.l.Info("optimization stored",
			applogger.String("symbol", sym),
			applogger.String("period", period),
			applogger.String("trigger", trigger),
			applogger.String("run_id", runID),
			applogger.Bool("replaced", existed),
			applogger.Int("bars", series.Len()),
			applogger.Any("single", rec.Single.Windows),
			applogger.Any("dual", rec.Dual.Windows),
			applogger.Any("ema", rec.Exponential.Windows),
			applogger.Float64("organic_growth", rec.OrganicGrowth),
			applogger.Duration("took", time.Since(start)))
	}
	return rec, nil
}

// fetchSeries loads and validates price history. Any failure is reported as
// models.ErrUpstreamUnavailable.
func (s *OptimizedSymbolService) fetchSeries(ctx context.Context, sym, period string) (models.Series, error) {
	start := time.Now()
	bars, err := s.history.History(ctx, sym, period)
	s.metrics.RecordLatency("history_fetch_seconds", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("history_fetch")
		if !errors.Is(err, models.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
		}
		return models.Series{}, fmt.Errorf("fetch %s %s: %w", sym, period, err)
	}

	bars = models.NormalizeBars(bars)
	if len(bars) == 0 {
		s.metrics.RecordError("history_empty")
		return models.Series{}, fmt.Errorf("fetch %s %s: %w: no bars", sym, period, models.ErrUpstreamUnavailable)
	}

	if s.archive != nil {
		if err := s.archive.StoreBars(ctx, sym, bars); err != nil {
			s.metrics.RecordError("archive")
			if s.l != nil {
				s.l.Warn("archive bars failed", applogger.String("symbol", sym), applogger.Error(err))
			}
		}
	}

	series, err := models.NewSeries(sym, bars)
	if err != nil {
		return models.Series{}, fmt.Errorf("fetch %s %s: %w", sym, period, err)
	}
	return series, nil
}

func (s *OptimizedSymbolService) fillCache(ctx context.Context, rec models.SymbolOptimization) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, rec, s.cacheTTL); err != nil {
		s.metrics.RecordError("cache_set")
		if s.l != nil {
			s.l.Warn("cache set failed", applogger.String("symbol", rec.Symbol), applogger.Error(err))
		}
	}
}

func (s *OptimizedSymbolService) publish(ctx context.Context, rec models.SymbolOptimization, trigger string) {
	if s.pub == nil {
		return
	}
	ev := models.OptimizationEvent{RunID: rec.RunID, Optimization: rec, Trigger: trigger}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.metrics.RecordError("publish")
		if s.l != nil {
			s.l.Warn("publish optimization failed", applogger.String("symbol", rec.Symbol), applogger.Error(err))
		}
	}
}

func (s *OptimizedSymbolService) normalize(symbol, period string) (string, string, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return "", "", fmt.Errorf("%q: %w", symbol, err)
	}
	period = s.periodOr(period)
	if !util.ValidPeriod(period) {
		return "", "", fmt.Errorf("%q: %w", period, models.ErrInvalidPeriod)
	}
	return sym, period, nil
}

func (s *OptimizedSymbolService) periodOr(period string) string {
	if period == "" {
		return s.defaultPeriod
	}
	return period
}

func (s *OptimizedSymbolService) symbolLock(sym string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sym]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sym] = l
	}
	return l
}

// setState stores st and returns the previous state.
func (s *OptimizedSymbolService) setState(sym string, st State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.states[sym]
	s.states[sym] = st
	return prev
}

type noopMetrics struct{}

func (noopMetrics) RecordSweep(string, int, float64) {}
func (noopMetrics) RecordRefresh(string, string)     {}
func (noopMetrics) RecordCache(string)               {}
func (noopMetrics) RecordError(string)               {}
func (noopMetrics) RecordLatency(string, float64)    {}
