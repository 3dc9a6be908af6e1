package repository

import (
	"context"
	"errors"
	"time"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
	"WindowOpt/pkg/cache"
)

const (
	optimizationKeyPrefix = "optimization"
	refreshLockKeyPrefix  = "refresh-lock"
)

// CachedResults stores optimizations and refresh locks in a cache.Service (Redis in production).
type CachedResults struct {
	c cache.Service
}

func NewCachedResults(c cache.Service) *CachedResults {
	return &CachedResults{c: c}
}

func (r *CachedResults) Get(ctx context.Context, symbol string) (models.SymbolOptimization, bool, error) {
	var rec models.SymbolOptimization
	err := r.c.Get(ctx, cache.Key(optimizationKeyPrefix, symbol), &rec)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.SymbolOptimization{}, false, nil
	}
	if err != nil {
		return models.SymbolOptimization{}, false, err
	}
	return rec, true, nil
}

func (r *CachedResults) Set(ctx context.Context, rec models.SymbolOptimization, ttl time.Duration) error {
	return r.c.Set(ctx, cache.Key(optimizationKeyPrefix, rec.Symbol), rec, ttl)
}

func (r *CachedResults) TryLock(ctx context.Context, symbol string, ttl time.Duration) (string, bool, error) {
	return r.c.TryLock(ctx, cache.Key(refreshLockKeyPrefix, symbol), ttl)
}

func (r *CachedResults) Unlock(ctx context.Context, symbol, token string) error {
	return r.c.Unlock(ctx, cache.Key(refreshLockKeyPrefix, symbol), token)
}

var (
	_ domrepo.ResultCache   = (*CachedResults)(nil)
	_ domrepo.RefreshLocker = (*CachedResults)(nil)
)
