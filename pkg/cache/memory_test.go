package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type payload struct {
	Symbol  string  `json:"symbol"`
	Windows []int   `json:"windows"`
	Value   float64 `json:"value"`
}

func TestMemoryCache_SetGetExpire(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	in := payload{Symbol: "AAPL", Windows: []int{10, 20}, Value: 1.2345678901234}
	require.NoError(t, mc.Set(ctx, "opt:AAPL", in, time.Minute))

	var out payload
	require.NoError(t, mc.Get(ctx, "opt:AAPL", &out))
	assert.Equal(t, in, out)

	ok, err := mc.Exists(ctx, "opt:MSFT", "opt:AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "opt:AAPL", &out), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "opt:MSFT", in, time.Minute))
	require.NoError(t, mc.Delete(ctx, "opt:MSFT"))
	assert.ErrorIs(t, mc.Get(ctx, "opt:MSFT", &out), ErrCacheMiss)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	clock.Advance(time.Second)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v)) // a is now newer than b
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCache_Lock(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	token, ok, err := mc.TryLock(ctx, "lock:AAPL", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = mc.TryLock(ctx, "lock:AAPL", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock cannot be taken twice")

	assert.ErrorIs(t, mc.Unlock(ctx, "lock:AAPL", "someone-else"), ErrLockNotHeld)
	require.NoError(t, mc.Unlock(ctx, "lock:AAPL", token))

	_, ok, err = mc.TryLock(ctx, "lock:AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok, err = mc.TryLock(ctx, "lock:AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is free again")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "optimization", Key("optimization"))
	assert.Equal(t, "optimization:AAPL", Key("optimization", "AAPL"))
	assert.Equal(t, "refresh-lock:AAPL:12mo", Key("refresh-lock", "AAPL", "12mo"))
}
