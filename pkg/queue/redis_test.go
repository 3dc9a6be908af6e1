package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps lists and sorted sets in memory.
type fakeRedis struct {
	mu     sync.Mutex
	lists  map[string][]string
	zsets  map[string]map[string]float64
	notify chan struct{}
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		lists:  make(map[string][]string),
		zsets:  make(map[string]map[string]float64),
		notify: make(chan struct{}, 64),
	}
}

func str(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	for _, v := range values {
		f.lists[key] = append([]string{str(v)}, f.lists[key]...)
	}
	n := len(f.lists[key])
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return redis.NewIntResult(int64(n), nil)
}

func (f *fakeRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	deadline := time.After(timeout)
	for {
		f.mu.Lock()
		for _, k := range keys {
			if l := f.lists[k]; len(l) > 0 {
				v := l[len(l)-1]
				f.lists[k] = l[:len(l)-1]
				f.mu.Unlock()
				return redis.NewStringSliceResult([]string{k, v}, nil)
			}
		}
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return redis.NewStringSliceResult(nil, ctx.Err())
		case <-deadline:
			return redis.NewStringSliceResult(nil, redis.Nil)
		case <-f.notify:
		}
	}
}

func (f *fakeRedis) ZAdd(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zsets[key] == nil {
		f.zsets[key] = make(map[string]float64)
	}
	for _, m := range members {
		f.zsets[key][str(m.Member)] = m.Score
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) ZRangeByScore(_ context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd {
	max, _ := strconv.ParseFloat(opt.Max, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m, score := range f.zsets[key] {
		if score <= max {
			out = append(out, m)
		}
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeRedis) ZRem(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range members {
		if _, ok := f.zsets[key][str(m)]; ok {
			delete(f.zsets[key], str(m))
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) list(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lists[key]...)
}

type recordingJob struct {
	mu    sync.Mutex
	calls []json.RawMessage
	err   error
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "refresh" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, payload)
	return j.err
}

func (j *recordingJob) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.calls)
}

func startQueue(t *testing.T, rdb *fakeRedis, job Job, cfg Config) *RedisQueue {
	t.Helper()
	q := NewRedisQueue(rdb, cfg, WithKeyPrefix("test:queue"))
	require.NoError(t, q.RegisterJob(job))
	require.NoError(t, q.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return q
}

func TestRedisQueue_DeliversPayload(t *testing.T) {
	rdb := newFakeRedis()
	job := &recordingJob{}
	q := startQueue(t, rdb, job, Config{Workers: 2, PollTimeout: 20 * time.Millisecond})

	id, err := q.Enqueue(context.Background(), "refresh", map[string]string{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool { return job.Calls() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(job.calls[0]))
}

func TestRedisQueue_RetriesThenDeadLetters(t *testing.T) {
	rdb := newFakeRedis()
	job := &recordingJob{err: errors.New("upstream down")}
	q := startQueue(t, rdb, job, Config{
		Workers:     1,
		RetryLimit:  1,
		RetryDelay:  time.Nanosecond,
		PollTimeout: 20 * time.Millisecond,
		RetryTick:   10 * time.Millisecond,
	})

	_, err := q.Enqueue(context.Background(), "refresh", "MSFT")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rdb.list("test:queue:dlq")) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, job.Calls())

	var dead Message
	require.NoError(t, json.Unmarshal([]byte(rdb.list("test:queue:dlq")[0]), &dead))
	assert.Equal(t, 1, dead.Attempts)
	assert.Equal(t, "upstream down", dead.LastError)
	assert.JSONEq(t, `"MSFT"`, string(dead.Payload))
}

func TestRedisQueue_DiscardSkipsRetry(t *testing.T) {
	rdb := newFakeRedis()
	job := &recordingJob{err: fmt.Errorf("bad symbol: %w", ErrDiscard)}
	q := startQueue(t, rdb, job, Config{Workers: 1, RetryLimit: 5, PollTimeout: 20 * time.Millisecond})

	_, err := q.Enqueue(context.Background(), "refresh", "??")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rdb.list("test:queue:dlq")) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, job.Calls())
}

func TestRedisQueue_RejectsUnknownTypeAndDuplicates(t *testing.T) {
	q := NewRedisQueue(newFakeRedis(), Config{})
	require.NoError(t, q.RegisterJob(&recordingJob{}))
	assert.Error(t, q.RegisterJob(&recordingJob{}))

	_, err := q.Enqueue(context.Background(), "other", nil)
	assert.Error(t, err)
}
