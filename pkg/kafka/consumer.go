package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "WindowOpt/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	StartOffset int64
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID sets consumer group ID.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerAutoOffsetReset sets where a new group starts: "earliest" or "latest".
func WithConsumerAutoOffsetReset(reset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if reset == "latest" {
			c.StartOffset = kafka.LastOffset
			return
		}
		c.StartOffset = kafka.FirstOffset
	}
}

// WithConsumerWorkers sets number of worker goroutines.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry configures retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets a Kafka topic name for DLQ.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.DLQTopic = topic
	}
}

// WithConsumerFetch sets fetch min/max bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the internal channel buffer size.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer wraps Kafka reader with worker pool.
type Consumer struct {
	cfg       *ConsumerConfig
	readers   map[string]messageReader
	handlers  map[string]MessageHandler
	newReader func(topic string) messageReader
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
	msgChan   chan *message
	dlq       messageWriter
	plMu      sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
	hook      ConsumerHook
	l         *applogger.Logger
}

type message struct {
	topic string
	km    kafka.Message
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "windowopt",
		StartOffset: kafka.FirstOffset,
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:       cfg,
		readers:   make(map[string]messageReader),
		handlers:  make(map[string]MessageHandler),
		ctx:       ctx,
		cancel:    cancel,
		msgChan:   make(chan *message, cfg.BufferSize),
		partLocks: make(map[string]map[int]*sync.Mutex),
		hook:      NoopHook{},
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.GroupID,
			StartOffset: cfg.StartOffset,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
		})
	}

	initConsumerMetricsOnce()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.Hash{}, AllowAutoTopicCreation: true}
	}

	return c, nil
}

// SetLogger sets the logger used for consumer lifecycle and failures.
func (c *Consumer) SetLogger(l *applogger.Logger) {
	c.l = l
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler registers a message handler for a specific topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) error {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		return fmt.Errorf("handler already registered for topic %s", topic)
	}
	c.handlers[topic] = handler
	return nil
}

// Start starts the Kafka consumer and workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = c.newReader(topic)
		if c.l != nil {
			c.l.Info("kafka consumer: registered topic", applogger.String("topic", topic))
		}
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.messageWorker()
	}

	var readers sync.WaitGroup
	for topic, reader := range c.readers {
		readers.Add(1)
		go func(topic string, reader messageReader) {
			defer readers.Done()
			c.consumeMessages(topic, reader)
		}(topic, reader)
	}
	// workers drain msgChan once every reader has stopped sending
	go func() {
		readers.Wait()
		close(c.msgChan)
	}()

	if c.l != nil {
		c.l.Info("kafka consumer: started",
			applogger.Int("workers", c.cfg.WorkerCount),
			applogger.String("group", c.cfg.GroupID))
	}
	return nil
}

// Stop stops the Kafka consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		c.cancel()
		stopErr = c.waitForWg(ctx)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil && c.l != nil {
				c.l.Warn("kafka consumer: close reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil && c.l != nil {
				c.l.Warn("kafka consumer: close dlq writer", applogger.Error(err))
			}
		}
		if stopErr == nil && c.l != nil {
			c.l.Info("kafka consumer: stopped")
		}
	})

	return stopErr
}

func (c *Consumer) waitForWg(ctx context.Context) error {
	doneChan := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(doneChan)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-doneChan:
		return nil
	}
}

func (c *Consumer) consumeMessages(topic string, reader messageReader) {
	for {
		msg, err := reader.ReadMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if c.l != nil {
				c.l.Warn("kafka consumer: read", applogger.String("topic", topic), applogger.Error(err))
			}
			select {
			case <-time.After(c.cfg.BackoffMin):
			case <-c.ctx.Done():
				return
			}
			continue
		}

		// blocking send gives backpressure to the reader
		select {
		case c.msgChan <- &message{topic: topic, km: msg}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) messageWorker() {
	defer c.wg.Done()
	for msg := range c.msgChan {
		c.process(msg)
	}
}

// process runs the handler with retries, dead-letters exhausted messages and
// commits the offset. Messages of one partition are handled one at a time.
func (c *Consumer) process(msg *message) {
	handler, ok := c.handlers[msg.topic]
	if !ok {
		return
	}
	start := time.Now()
	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	attempts := 0
	op := func() (err error) {
		attempts++
		defer func() {
			if r := recover(); r != nil {
				err = backoff.Permanent(fmt.Errorf("panic in handler: %v", r))
			}
		}()
		hctx, data, err := c.hook.BeforeHandle(c.ctx, msg.topic, msg.km, msg.km.Value)
		if err != nil {
			return backoff.Permanent(err)
		}
		err = handler.Handle(hctx, data)
		c.hook.AfterHandle(hctx, msg.topic, msg.km, err)
		if errors.Is(err, ErrSkip) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.hook.OnError(c.ctx, msg.topic, msg.km, err)
		if c.l != nil {
			c.l.Warn("kafka consumer: handler failed, retrying",
				applogger.String("topic", msg.topic),
				applogger.Int("attempt", attempts),
				applogger.Duration("wait", wait),
				applogger.Error(err))
		}
	}

	err := backoff.RetryNotify(op, c.retryPolicy(), notify)
	result := "ok"
	if errors.Is(err, ErrSkip) {
		if c.l != nil {
			c.l.Warn("kafka consumer: message skipped",
				applogger.String("topic", msg.topic),
				applogger.Int64("offset", msg.km.Offset),
				applogger.Error(err))
		}
		result = "skipped"
		err = nil
	} else if err != nil {
		result = "failed"
		c.hook.OnError(c.ctx, msg.topic, msg.km, err)
		if c.l != nil {
			c.l.Error("kafka consumer: handler gave up",
				applogger.String("topic", msg.topic),
				applogger.Int("attempts", attempts),
				applogger.Error(err))
		}
		if c.ctx.Err() != nil {
			// shutting down: leave the offset for the next member
			consumerMessagesTotal.WithLabelValues(msg.topic, "aborted").Inc()
			return
		}
		if c.deadLetter(msg, err) {
			result = "dead_lettered"
		}
	}
	consumerMessagesTotal.WithLabelValues(msg.topic, result).Inc()

	// commit on success or after DLQ to avoid poison loops
	if err == nil || result == "dead_lettered" {
		if reader := c.readers[msg.topic]; reader != nil {
			_ = c.commitWithRetry(reader, msg.km)
		}
	}
	consumerHandleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) retryPolicy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BackoffMin
	eb.MaxInterval = c.cfg.BackoffMax
	eb.MaxElapsedTime = 0
	retries := c.cfg.RetryMax
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), c.ctx)
}

func (c *Consumer) deadLetter(msg *message, cause error) bool {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.km.Key,
		Value: msg.km.Value,
		Time:  time.Now(),
		Headers: append(msg.km.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(msg.topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
	if err != nil {
		if c.l != nil {
			c.l.Error("kafka consumer: write dlq", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
		}
		return false
	}
	return true
}

func (c *Consumer) commitWithRetry(reader messageReader, km kafka.Message) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 500 * time.Millisecond
	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return reader.CommitMessages(ctx, km)
	}, backoff.WithMaxRetries(eb, 2))
	if err != nil && c.l != nil {
		c.l.Error("kafka consumer: commit", applogger.String("topic", km.Topic), applogger.Error(err))
	}
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.plMu.Lock()
	defer c.plMu.Unlock()
	m, ok := c.partLocks[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.partLocks[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

// ErrSkip marks a message that must not be retried or dead-lettered, such as
// an undecodable payload. Its offset is committed.
var ErrSkip = errors.New("kafka: skip message")

// Consumer metrics
var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerMessagesTotal *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "windowopt_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "windowopt_kafka_consumer_messages_total", Help: "Consumed messages by outcome"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "windowopt_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
