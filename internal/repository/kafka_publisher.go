package repository

import (
	"context"

	"github.com/segmentio/kafka-go"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
)

// eventProducer is satisfied by *pkgkafka.Producer.
type eventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error
	Close() error
}

// KafkaResultPublisher announces stored optimizations on a topic keyed by symbol,
// so every event for one symbol lands on the same partition.
type KafkaResultPublisher struct {
	p     eventProducer
	topic string
}

func NewKafkaResultPublisher(p eventProducer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{p: p, topic: topic}
}

func (k *KafkaResultPublisher) Publish(ctx context.Context, ev models.OptimizationEvent) error {
	return k.p.Publish(ctx, k.topic, []byte(ev.Optimization.Symbol), ev,
		kafka.Header{Key: "trace_id", Value: []byte(ev.RunID)},
		kafka.Header{Key: "trigger", Value: []byte(ev.Trigger)},
	)
}

func (k *KafkaResultPublisher) Close() error {
	return k.p.Close()
}

var _ domrepo.Publisher = (*KafkaResultPublisher)(nil)
