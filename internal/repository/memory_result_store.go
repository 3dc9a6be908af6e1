package repository

import (
	"context"
	"sort"
	"sync"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
)

// MemoryResultStore keeps one record per symbol in process. Used when ClickHouse is
// not configured and in tests.
type MemoryResultStore struct {
	mu   sync.RWMutex
	rows map[string]models.SymbolOptimization
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{rows: make(map[string]models.SymbolOptimization)}
}

func (s *MemoryResultStore) Init(context.Context) error { return nil }

func (s *MemoryResultStore) Get(_ context.Context, symbol string) (models.SymbolOptimization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rows[symbol]
	if !ok {
		return models.SymbolOptimization{}, models.ErrNotFound
	}
	return clone(rec), nil
}

func (s *MemoryResultStore) Upsert(_ context.Context, rec models.SymbolOptimization) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.rows[rec.Symbol]
	s.rows[rec.Symbol] = clone(rec)
	return existed, nil
}

func (s *MemoryResultStore) Symbols(context.Context) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.rows))
	for sym := range s.rows {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// Len returns the number of stored symbols.
func (s *MemoryResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryResultStore) Health(context.Context) error { return nil }

func (s *MemoryResultStore) Close() error { return nil }

func clone(rec models.SymbolOptimization) models.SymbolOptimization {
	rec.Single.Windows = append([]int(nil), rec.Single.Windows...)
	rec.Dual.Windows = append([]int(nil), rec.Dual.Windows...)
	rec.Exponential.Windows = append([]int(nil), rec.Exponential.Windows...)
	return rec
}

var _ domrepo.ResultStore = (*MemoryResultStore)(nil)
