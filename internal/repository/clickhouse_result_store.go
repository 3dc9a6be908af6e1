package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
	pkgch "WindowOpt/pkg/clickhouse"
	applogger "WindowOpt/pkg/logger"
)

// CHResultStore implements ResultStore on optimum_symbol_parameters.
// The table is a ReplacingMergeTree keyed by symbol, so an insert replaces the
// previous row and reads use FINAL to see only the newest version.
type CHResultStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client) *CHResultStore {
	return &CHResultStore{
		ch:    ch,
		db:    ch.DB(),
		table: fmt.Sprintf("%s.%s", ch.Database(), pkgch.ResultsTable),
	}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, pkgch.Schema(s.ch.Database()))
}

func (s *CHResultStore) Get(ctx context.Context, symbol string) (models.SymbolOptimization, error) {
	q := fmt.Sprintf(`
        SELECT symbol, last_updated, calc_period,
               single_opt_window, single_opt_multiple,
               dual_opt_window_1, dual_opt_window_2, dual_opt_multiple,
               organic_growth, exp_opt_window, exp_opt_multiple, run_id
        FROM %s FINAL
        WHERE symbol = ?
        LIMIT 1`, s.table)

	var (
		rec                      models.SymbolOptimization
		single, dual1, dual2, ex uint16
		singleM, dualM, exM      float64
		updated                  time.Time
	)
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(
		&rec.Symbol, &updated, &rec.Period,
		&single, &singleM,
		&dual1, &dual2, &dualM,
		&rec.OrganicGrowth, &ex, &exM, &rec.RunID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SymbolOptimization{}, models.ErrNotFound
	}
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get optimization error", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return models.SymbolOptimization{}, fmt.Errorf("get optimization: %w", err)
	}

	return models.NewSymbolOptimization(rec.Symbol, rec.Period, rec.OrganicGrowth, updated.UTC(),
		models.OptimizationResult{Kind: models.StrategySingleSMA, Windows: []int{int(single)}, Multiple: singleM},
		models.OptimizationResult{Kind: models.StrategyDualSMA, Windows: []int{int(dual1), int(dual2)}, Multiple: dualM},
		models.OptimizationResult{Kind: models.StrategyEMA, Windows: []int{int(ex)}, Multiple: exM},
	).WithRunID(rec.RunID), nil
}

func (s *CHResultStore) Upsert(ctx context.Context, rec models.SymbolOptimization) (bool, error) {
	var n uint64
	cq := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE symbol = ?", s.table)
	if err := s.db.QueryRowContext(ctx, cq, rec.Symbol).Scan(&n); err != nil {
		return false, fmt.Errorf("upsert optimization: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s (symbol, last_updated, calc_period,
        single_opt_window, single_opt_multiple,
        dual_opt_window_1, dual_opt_window_2, dual_opt_multiple,
        organic_growth, exp_opt_window, exp_opt_multiple, run_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	start := time.Now()
	_, err := s.db.ExecContext(ctx, q,
		rec.Symbol, rec.LastUpdated, rec.Period,
		uint16(rec.Single.Window(0)), rec.Single.Multiple,
		uint16(rec.Dual.Window(0)), uint16(rec.Dual.Window(1)), rec.Dual.Multiple,
		rec.OrganicGrowth, uint16(rec.Exponential.Window(0)), rec.Exponential.Multiple, rec.RunID,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse upsert optimization error", applogger.String("symbol", rec.Symbol), applogger.Error(err))
		}
		return false, fmt.Errorf("upsert optimization: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse upsert optimization ok",
			applogger.String("symbol", rec.Symbol),
			applogger.Bool("replaced", n > 0),
			applogger.Duration("duration", time.Since(start)))
	}
	return n > 0, nil
}

func (s *CHResultStore) Symbols(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s FINAL ORDER BY symbol", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHResultStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHResultStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
