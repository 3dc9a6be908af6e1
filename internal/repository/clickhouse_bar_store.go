package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
	pkgch "WindowOpt/pkg/clickhouse"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/util"
)

// CHBarStore archives daily bars in ClickHouse and can serve them back as price history.
type CHBarStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client) *CHBarStore {
	return &CHBarStore{
		db:    ch.DB(),
		table: fmt.Sprintf("%s.%s", ch.Database(), pkgch.BarsTable),
		now:   time.Now,
	}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// StoreBars inserts bars with multi-row VALUES in chunks. Re-inserted dates replace older rows.
func (s *CHBarStore) StoreBars(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	start := time.Now()
	for from := 0; from < len(bars); from += chunkSize {
		to := from + chunkSize
		if to > len(bars) {
			to = len(bars)
		}

		values := make([]string, 0, to-from)
		args := make([]interface{}, 0, (to-from)*7)
		for _, b := range bars[from:to] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, util.TruncateDay(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store_bars error",
					applogger.String("symbol", symbol),
					applogger.Int("rows", to-from),
					applogger.Error(err))
			}
			return fmt.Errorf("store bars: %w", err)
		}
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_bars ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(bars)),
			applogger.Duration("duration", time.Since(start)))
	}
	return nil
}

// History reads archived bars covering period, ascending by date.
func (s *CHBarStore) History(ctx context.Context, symbol, period string) ([]models.Bar, error) {
	from, err := util.LookbackStart(period, s.now())
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ?
        ORDER BY date ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return nil, fmt.Errorf("%w: history query: %w", models.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = util.TruncateDay(b.Date)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no archived bars for %s", models.ErrUpstreamUnavailable, symbol)
	}
	return out, nil
}

var (
	_ domrepo.BarArchive   = (*CHBarStore)(nil)
	_ domrepo.PriceHistory = (*CHBarStore)(nil)
)
