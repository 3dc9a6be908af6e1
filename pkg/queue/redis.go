package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"WindowOpt/pkg/logger"
)

// Commands is the subset of *redis.Client the queue uses.
type Commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// RedisQueue is a list-backed job queue with delayed retries in a sorted set and a
// dead-letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    Config
	client    Commands
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	keyPrefix string
	now       func() time.Time
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(l *logger.Logger) RedisQueueOption {
	return func(r *RedisQueue) { r.logger = l }
}

// NewRedisQueue creates a new Redis queue.
func NewRedisQueue(client Commands, config Config, opts ...RedisQueueOption) *RedisQueue {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	if config.RetryTick <= 0 {
		config.RetryTick = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    logger.Nop(),
		config:    config,
		client:    client,
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "windowopt:queue",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob registers a job for its message type.
func (r *RedisQueue) RegisterJob(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		return fmt.Errorf("job already registered for type %s", job.Type())
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
	return nil
}

// Start pings Redis and starts the workers and the retry processor.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.isRunning = true

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryProcessor()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("prefix", r.keyPrefix))
	return nil
}

// Stop gracefully stops the queue.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.logger.Info("stopping redis queue...")
	r.cancel()
	r.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		r.logger.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue adds a message to the queue and returns its id.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	r.mu.RLock()
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("no job registered for type: %s", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: r.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return msg.ID, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for r.ctx.Err() == nil {
		r.processNext()
	}
	r.logger.Debug("queue worker stopping", logger.Int("worker_id", id))
}

func (r *RedisQueue) processNext() {
	result, err := r.client.BRPop(r.ctx, r.config.PollTimeout, r.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.logger.Error("brpop error", logger.Error(err))
		select {
		case <-r.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		r.logger.Error("unmarshal message", logger.Error(err))
		return
	}
	r.process(msg)
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, exists := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !exists {
		r.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		r.deadLetter(msg, fmt.Errorf("no job for type %s", msg.Type))
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		r.logger.Debug("message processed",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("took", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
		// shutting down: put it back for the next run
		r.scheduleRetry(msg, r.now())
		return
	}
	r.handleProcessingError(msg, job, err)
}

func (r *RedisQueue) handleProcessingError(msg Message, job Job, err error) {
	r.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	msg.LastError = err.Error()
	if errors.Is(err, ErrDiscard) || msg.Attempts >= r.config.RetryLimit {
		r.deadLetter(msg, err)
		return
	}

	msg.Attempts++
	retryAt := r.now().Add(r.config.RetryDelay)
	r.scheduleRetry(msg, retryAt)
	r.logger.Info("scheduled retry",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", retryAt.Format(time.RFC3339)))
}

func (r *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	err = r.client.ZAdd(context.WithoutCancel(r.ctx), r.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: string(data),
	}).Err()
	if err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) deadLetter(msg Message, cause error) {
	if msg.LastError == "" && cause != nil {
		msg.LastError = cause.Error()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal dlq", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.WithoutCancel(r.ctx), r.deadLetterKey(), data).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.RetryTick)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.promoteDueRetries()
		}
	}
}

// promoteDueRetries moves retries whose time has come back onto the queue. Only the
// caller whose ZREM removed a member pushes it, so concurrent instances do not
// duplicate work.
func (r *RedisQueue) promoteDueRetries() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}

	for _, member := range due {
		if r.ctx.Err() != nil {
			return
		}
		removed, err := r.client.ZRem(r.ctx, r.retryKey(), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := r.client.LPush(r.ctx, r.queueKey(), member).Err(); err != nil {
			r.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string {
	return r.keyPrefix + ":messages"
}

func (r *RedisQueue) retryKey() string {
	return r.keyPrefix + ":retry"
}

func (r *RedisQueue) deadLetterKey() string {
	return r.keyPrefix + ":dlq"
}

var _ Enqueuer = (*RedisQueue)(nil)
