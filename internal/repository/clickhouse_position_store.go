package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
	pkgch "WindowOpt/pkg/clickhouse"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/util"
)

// CHPositionStore writes the daily positions log. Rows are keyed by (symbol, date),
// so a second run on the same day replaces the first.
type CHPositionStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPositionStore(ch *pkgch.Client) *CHPositionStore {
	return &CHPositionStore{
		db:    ch.DB(),
		table: fmt.Sprintf("%s.%s", ch.Database(), pkgch.PositionsTable),
	}
}

// SetLogger injects a structured logger.
func (s *CHPositionStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPositionStore) SavePosition(ctx context.Context, rec models.PositionRecord) error {
	windows := make([]uint16, len(rec.Windows))
	for i, w := range rec.Windows {
		windows[i] = uint16(w)
	}
	q := fmt.Sprintf(`INSERT INTO %s (symbol, date, bar_date, strategy, windows, multiple,
        position, at_price, changed_from_previous)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	start := time.Now()
	_, err := s.db.ExecContext(ctx, q,
		rec.Symbol, util.TruncateDay(rec.RecordedOn), util.TruncateDay(rec.Date),
		string(rec.Strategy), windows, rec.Multiple,
		rec.Position.String(), rec.ExecutionPrice, rec.ChangedFromPrevious,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save position error", applogger.String("symbol", rec.Symbol), applogger.Error(err))
		}
		return fmt.Errorf("save position: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse save position ok",
			applogger.String("symbol", rec.Symbol),
			applogger.String("position", rec.Position.String()),
			applogger.Duration("duration", time.Since(start)))
	}
	return nil
}

var _ domrepo.PositionStore = (*CHPositionStore)(nil)
