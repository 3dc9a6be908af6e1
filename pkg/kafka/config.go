package kafka

import "time"

// ProducerConfig holds writer settings. Defaults are applied in NewProducer.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int // -1 waits for all in-sync replicas
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	HashByKey    bool
}

type ProducerOption func(*ProducerConfig)

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression accepts gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { c.MaxAttempts = n }
}

// WithBatch flushes after size messages or timeout, whichever comes first.
func WithBatch(size int, timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.BatchSize, c.BatchTimeout = size, timeout }
}

func WithWriteTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.WriteTimeout = d }
}

// WithHashByKey routes equal keys to one partition, so events for a symbol stay ordered.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}
