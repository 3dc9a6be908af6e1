package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"WindowOpt/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORS            bool          `yaml:"cors"`
		RefreshBurst    float64       `yaml:"refresh_burst"`
		RefreshPerMin   float64       `yaml:"refresh_per_minute"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"logging"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RefreshTopic string   `yaml:"refresh_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchSize    int           `yaml:"batch_size"`
			Linger       time.Duration `yaml:"linger"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID         string        `yaml:"group_id"`
			AutoOffsetReset string        `yaml:"auto_offset_reset"`
			Workers         int           `yaml:"workers"`
			BufferSize      int           `yaml:"buffer_size"`
			RetryMax        int           `yaml:"retry_max"`
			BackoffMin      time.Duration `yaml:"backoff_min"`
			BackoffMax      time.Duration `yaml:"backoff_max"`
			DLQTopic        string        `yaml:"dlq_topic"`
			MinBytes        int           `yaml:"min_bytes"`
			MaxBytes        int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	MarketData struct {
		Source     string        `yaml:"source"`
		BaseURL    string        `yaml:"base_url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
		Archive    bool          `yaml:"archive"`
	} `yaml:"marketdata"`
	Optimizer struct {
		SingleStep    int           `yaml:"single_step"`
		Workers       int           `yaml:"workers"`
		SweepTimeout  time.Duration `yaml:"sweep_timeout"`
		DefaultPeriod string        `yaml:"default_period"`
		Symbols       []string      `yaml:"symbols"`
	} `yaml:"optimizer"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		Prefix     string        `yaml:"prefix"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("MARKETDATA_BASE_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Optimizer.Symbols = util.SplitList(v)
	}
	if v := os.Getenv("OPTIMIZER_SINGLE_STEP"); v != "" {
		c.Optimizer.SingleStep = util.ParseIntDefault(v, c.Optimizer.SingleStep)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Defaults()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Defaults returns the configuration used for keys the file leaves out.
func Defaults() *Config {
	c := &Config{}
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 2 * time.Minute
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.SlowThreshold = 5 * time.Second
	c.Server.CORS = true
	c.Server.RefreshBurst = 2
	c.Server.RefreshPerMin = 1
	c.Metrics.Enabled = true
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Kafka.Topic = "optimizations"
	c.Kafka.RefreshTopic = "optimization-refresh"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Consumer.GroupID = "windowopt"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 500 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 10 * time.Second
	c.MarketData.Source = "http"
	c.MarketData.Timeout = 15 * time.Second
	c.MarketData.MaxRetries = 3
	c.MarketData.BackoffMin = 500 * time.Millisecond
	c.MarketData.BackoffMax = 5 * time.Second
	c.Optimizer.SingleStep = 1
	c.Optimizer.SweepTimeout = 5 * time.Minute
	c.Optimizer.DefaultPeriod = "12mo"
	c.Cache.TTL = 24 * time.Hour
	c.Queue.Workers = 1
	c.Queue.RetryLimit = 3
	c.Queue.RetryDelay = 30 * time.Second
	c.Queue.Prefix = "windowopt:queue"
	return c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if s := c.Optimizer.SingleStep; s != 1 && s != 5 {
		return fmt.Errorf("optimizer.single_step must be 1 or 5, got %d", s)
	}
	if !util.ValidPeriod(c.Optimizer.DefaultPeriod) {
		return fmt.Errorf("optimizer.default_period %q is not a valid period", c.Optimizer.DefaultPeriod)
	}
	switch c.MarketData.Source {
	case "http":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("marketdata.source 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("marketdata.source must be 'http' or 'clickhouse', got '%s'", c.MarketData.Source)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	return nil
}
