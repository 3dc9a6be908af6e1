package di

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"WindowOpt/internal/domain/repository"
	"WindowOpt/internal/handler/api"
	internalrepo "WindowOpt/internal/repository"
	"WindowOpt/internal/service/marketdata"
	"WindowOpt/internal/services/optimizer"
	"WindowOpt/internal/usecase"
	"WindowOpt/pkg/cache"
	pkgch "WindowOpt/pkg/clickhouse"
	"WindowOpt/pkg/config"
	xhttp "WindowOpt/pkg/http"
	pkgkafka "WindowOpt/pkg/kafka"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/metrics"
	"WindowOpt/pkg/queue"
	"WindowOpt/pkg/server"
)

// ProvideLogger builds the root logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With("env", cfg.Environment), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse and creates the schema.
// It returns a nil client when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(client.Database())); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse: connected and schema ready", applogger.String("database", client.Database()))

	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideResultStore picks ClickHouse when available and an in-memory store otherwise.
func ProvideResultStore(ch *pkgch.Client, l *applogger.Logger) (repository.ResultStore, error) {
	if ch == nil {
		l.Warn("clickhouse disabled: optimizations are kept in memory only")
		return internalrepo.NewMemoryResultStore(), nil
	}
	store := internalrepo.NewCHResultStore(ch)
	store.SetLogger(l.With("component", "result_store"))
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}
	return store, nil
}

// ProvidePositionStore keeps the daily positions log next to the results.
func ProvidePositionStore(ch *pkgch.Client, l *applogger.Logger) repository.PositionStore {
	if ch == nil {
		return internalrepo.NewMemoryPositionStore()
	}
	store := internalrepo.NewCHPositionStore(ch)
	store.SetLogger(l.With("component", "position_store"))
	return store
}

// ProvideCache creates the Redis cache, or a process-local one when Redis is disabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	var (
		svc cache.Service
		err error
	)
	if cfg.Redis.Enabled {
		svc, err = cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 2, 3*time.Second),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		l.Info("redis: connected", applogger.String("addr", cfg.Redis.Addr))
	} else {
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(10_000))
	}
	cleanup := func() {
		if err := svc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// ProvideCachedResults adapts the cache to the result cache and refresh lock.
func ProvideCachedResults(c cache.Service) *internalrepo.CachedResults {
	return internalrepo.NewCachedResults(c)
}

// ProvidePriceHistory selects the price-history source named by marketdata.source.
func ProvidePriceHistory(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.PriceHistory, error) {
	if cfg.MarketData.Source == "clickhouse" {
		if ch == nil {
			return nil, fmt.Errorf("marketdata.source clickhouse needs a clickhouse client")
		}
		bars := internalrepo.NewCHBarStore(ch)
		bars.SetLogger(l.With("component", "bar_store"))
		return bars, nil
	}
	hc := xhttp.NewClient(
		xhttp.WithTimeout(cfg.MarketData.Timeout),
		xhttp.WithHeader("User-Agent", marketdata.UserAgent),
	)
	return marketdata.NewClient(hc,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithRetry(cfg.MarketData.MaxRetries, cfg.MarketData.BackoffMin, cfg.MarketData.BackoffMax),
		marketdata.WithLogger(l.With("component", "marketdata")),
	), nil
}

// ProvideBarArchive returns the ClickHouse bar archive, or nil when fetched bars
// are not archived.
func ProvideBarArchive(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.BarArchive {
	if ch == nil || !cfg.MarketData.Archive || cfg.MarketData.Source == "clickhouse" {
		return nil
	}
	bars := internalrepo.NewCHBarStore(ch)
	bars.SetLogger(l.With("component", "bar_archive"))
	return bars
}

// ProvideSuite builds the three optimizers.
func ProvideSuite(cfg *config.Config) (*optimizer.Suite, error) {
	workers := cfg.Optimizer.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return optimizer.NewSuite(cfg.Optimizer.SingleStep, optimizer.WithWorkers(workers))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvidePublisher publishes refreshed records when Kafka is enabled.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideOptimizedSymbolService wires the orchestration use case.
func ProvideOptimizedSymbolService(
	cfg *config.Config,
	history repository.PriceHistory,
	store repository.ResultStore,
	suite *optimizer.Suite,
	archive repository.BarArchive,
	cached *internalrepo.CachedResults,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.OptimizedSymbolService {
	opts := []usecase.Option{
		usecase.WithCache(cached, cfg.Cache.TTL),
		usecase.WithMetrics(m),
		usecase.WithLogger(l.With("component", "optimizer")),
		usecase.WithSweepTimeout(cfg.Optimizer.SweepTimeout),
		usecase.WithDefaultPeriod(cfg.Optimizer.DefaultPeriod),
	}
	if cfg.Redis.Enabled {
		opts = append(opts, usecase.WithRefreshLocker(cached))
	}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewOptimizedSymbolService(history, store, suite, opts...)
}

// ProvidePositionRecorder records the daily signal of every stored symbol.
func ProvidePositionRecorder(
	svc *usecase.OptimizedSymbolService,
	store repository.ResultStore,
	positions repository.PositionStore,
	l *applogger.Logger,
) *usecase.PositionRecorder {
	return usecase.NewPositionRecorder(svc, store, positions, l.With("component", "positions"))
}

// Batch is what cmd/batch runs against.
type Batch struct {
	Service   *usecase.OptimizedSymbolService
	Positions *usecase.PositionRecorder
}

func ProvideBatch(svc *usecase.OptimizedSymbolService, rec *usecase.PositionRecorder) *Batch {
	return &Batch{Service: svc, Positions: rec}
}

// ProvideKafkaConsumer creates the refresh consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RefreshTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.AutoOffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l.With("component", "kafka_consumer"))
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideKafkaRefreshHandler handles the refresh topic.
func ProvideKafkaRefreshHandler(cfg *config.Config, svc *usecase.OptimizedSymbolService, m repository.Metrics, l *applogger.Logger) *usecase.KafkaRefreshHandler {
	return usecase.NewKafkaRefreshHandler(cfg.Kafka.RefreshTopic, svc, m, l.With("component", "refresh_handler"))
}

// ProvideRefreshJob runs queued refreshes.
func ProvideRefreshJob(svc *usecase.OptimizedSymbolService, m repository.Metrics, l *applogger.Logger) *usecase.RefreshJob {
	return usecase.NewRefreshJob(svc, m, l.With("component", "refresh_job"))
}

// ProvideRefreshQueue creates the Redis job queue for asynchronous refreshes, or
// nil when the queue is disabled. It shares the cache's Redis connection pool.
func ProvideRefreshQueue(cfg *config.Config, c cache.Service, job *usecase.RefreshJob, l *applogger.Logger) (*queue.RedisQueue, error) {
	if !cfg.Queue.Enabled {
		return nil, nil
	}
	rc, ok := c.(*cache.RedisCache)
	if !ok {
		return nil, fmt.Errorf("refresh queue needs the redis cache, got %T", c)
	}
	q := queue.NewRedisQueue(rc.Client(), queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	},
		queue.WithKeyPrefix(cfg.Queue.Prefix),
		queue.WithLogger(l.With("component", "refresh_queue")),
	)
	if err := q.RegisterJob(job); err != nil {
		return nil, fmt.Errorf("refresh queue: %w", err)
	}
	return q, nil
}

// ProvideHTTPHandler builds the optimization API with dependency health checks.
func ProvideHTTPHandler(
	cfg *config.Config,
	svc *usecase.OptimizedSymbolService,
	store repository.ResultStore,
	c cache.Service,
	q *queue.RedisQueue,
	l *applogger.Logger,
) *api.OptimizationHandler {
	opts := []api.HandlerOption{
		api.WithLogger(l.With("component", "api")),
		api.WithRefreshLimit(cfg.Server.RefreshBurst, cfg.Server.RefreshPerMin/60),
		api.WithHealthCheck("store", store.Health),
		api.WithHealthCheck("cache", func(ctx context.Context) error {
			_, err := c.Exists(ctx, "healthz")
			return err
		}),
	}
	if q != nil {
		opts = append(opts, api.WithRefreshQueue(q, usecase.RefreshJobType))
	}
	return api.NewOptimizationHandler(svc, opts...)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.OptimizationHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
		xhttp.WithLogger(l.With("component", "http")),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	rh *usecase.KafkaRefreshHandler,
	q *queue.RedisQueue,
	svc *usecase.OptimizedSymbolService,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, httpServer, consumer, rh, q, svc, l)
}
