package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	Now             func() time.Time
}

type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize bounds the entry count; the least recently used entry is evicted first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}

// WithMemoryClock replaces time.Now for expiry checks.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryConfig) { c.Now = now }
}

// MemoryItem stores an encoded value with expiration.
type MemoryItem struct {
	Value    []byte
	ExpireAt time.Time
}

// MemoryCache implements Service in process with LRU eviction. Values round-trip
// through JSON so callers see the same decoding as with Redis.
type MemoryCache struct {
	data          map[string]*MemoryItem
	access        map[string]time.Time
	mutex         sync.Mutex
	maxSize       int
	now           func() time.Time
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*MemoryItem),
		access:        make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		now:           cfg.Now,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory set %s: %w", key, err)
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.put(key, data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item, ok := mc.live(key)
	if ok {
		mc.access[key] = mc.now()
	}
	mc.mutex.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.Value, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		if _, ok := mc.live(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, ok := mc.live(key); ok {
		return "", false, nil
	}
	token := uuid.NewString()
	mc.put(key, []byte(token), ttl)
	return token, true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key, token string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item, ok := mc.live(key)
	if !ok || string(item.Value) != token {
		return ErrLockNotHeld
	}
	delete(mc.data, key)
	delete(mc.access, key)
	return nil
}

// live returns the unexpired item for key, dropping it if expired. Caller holds the mutex.
func (mc *MemoryCache) live(key string) (*MemoryItem, bool) {
	item, ok := mc.data[key]
	if !ok {
		return nil, false
	}
	if mc.now().After(item.ExpireAt) {
		delete(mc.data, key)
		delete(mc.access, key)
		return nil, false
	}
	return item, true
}

// put stores data under key. Caller holds the mutex.
func (mc *MemoryCache) put(key string, data []byte, expiration time.Duration) {
	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	if expiration <= 0 {
		expiration = 7 * 24 * time.Hour // default 7 days
	}
	now := mc.now()
	mc.data[key] = &MemoryItem{Value: data, ExpireAt: now.Add(expiration)}
	mc.access[key] = now
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range mc.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.cleanupTicker.C:
			mc.mutex.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if now.After(item.ExpireAt) {
					delete(mc.data, key)
					delete(mc.access, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}

var _ Service = (*MemoryCache)(nil)
