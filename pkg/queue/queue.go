package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrDiscard marks a message that can never succeed.
var ErrDiscard = errors.New("queue: discard message")

// Enqueuer publishes jobs to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// Config contains the configuration for the queue.
type Config struct {
	Workers     int           // number of workers
	RetryLimit  int           // number of maximum retries
	RetryDelay  time.Duration // time delay between retries
	PollTimeout time.Duration // BRPOP block time
	RetryTick   time.Duration // how often due retries are moved back
}

// Message represents a message in the queue.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
	LastError string          `json:"last_error,omitempty"`
}
