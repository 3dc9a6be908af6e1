package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
	"WindowOpt/pkg/util"
)

type positionKey struct {
	symbol string
	day    time.Time
}

// MemoryPositionStore is the in-process positions log.
type MemoryPositionStore struct {
	mu   sync.RWMutex
	rows map[positionKey]models.PositionRecord
}

func NewMemoryPositionStore() *MemoryPositionStore {
	return &MemoryPositionStore{rows: make(map[positionKey]models.PositionRecord)}
}

func (s *MemoryPositionStore) SavePosition(_ context.Context, rec models.PositionRecord) error {
	rec.RecordedOn = util.TruncateDay(rec.RecordedOn)
	rec.Windows = append([]int(nil), rec.Windows...)
	s.mu.Lock()
	s.rows[positionKey{rec.Symbol, rec.RecordedOn}] = rec
	s.mu.Unlock()
	return nil
}

// Positions returns the rows for symbol, oldest day first.
func (s *MemoryPositionStore) Positions(symbol string) []models.PositionRecord {
	s.mu.RLock()
	var out []models.PositionRecord
	for k, rec := range s.rows {
		if k.symbol == symbol {
			rec.Windows = append([]int(nil), rec.Windows...)
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedOn.Before(out[j].RecordedOn) })
	return out
}

var _ domrepo.PositionStore = (*MemoryPositionStore)(nil)
