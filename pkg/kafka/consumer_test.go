package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) Committed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type funcHandler struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h funcHandler) Topic() string                                 { return h.topic }
func (h funcHandler) Handle(ctx context.Context, data []byte) error { return h.fn(ctx, data) }

func newTestConsumer(t *testing.T, handler MessageHandler, opts ...ConsumerOption) (*Consumer, *fakeReader, *fakeWriter) {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(opts...)
	require.NoError(t, err)
	require.NoError(t, c.RegisterHandler(handler))

	reader := &fakeReader{}
	dlq := &fakeWriter{}
	c.readers[handler.Topic()] = reader
	c.dlq = dlq
	return c, reader, dlq
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	h := funcHandler{topic: "refresh", fn: func(context.Context, []byte) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}}
	c, reader, dlq := newTestConsumer(t, h, WithConsumerDLQ("refresh.dlq"))

	c.process(&message{topic: "refresh", km: kafka.Message{Topic: "refresh", Value: []byte(`{}`)}})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, reader.Committed())
	assert.Empty(t, dlq.msgs)
}

func TestConsumer_ExhaustedGoesToDLQ(t *testing.T) {
	calls := 0
	h := funcHandler{topic: "refresh", fn: func(context.Context, []byte) error {
		calls++
		return errors.New("still down")
	}}
	c, reader, dlq := newTestConsumer(t, h, WithConsumerDLQ("refresh.dlq"))

	c.process(&message{topic: "refresh", km: kafka.Message{Topic: "refresh", Key: []byte("AAPL"), Value: []byte(`{"symbol":"AAPL"}`)}})

	assert.Equal(t, 3, calls, "one attempt plus two retries")
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "refresh.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte("AAPL"), dlq.msgs[0].Key)
	assert.Equal(t, 1, reader.Committed())
}

func TestConsumer_NoDLQLeavesOffset(t *testing.T) {
	h := funcHandler{topic: "refresh", fn: func(context.Context, []byte) error { return errors.New("boom") }}
	c, reader, _ := newTestConsumer(t, h)
	c.dlq = nil

	c.process(&message{topic: "refresh", km: kafka.Message{Topic: "refresh"}})

	assert.Zero(t, reader.Committed())
}

func TestConsumer_SkipIsCommittedWithoutRetry(t *testing.T) {
	calls := 0
	h := funcHandler{topic: "refresh", fn: func(context.Context, []byte) error {
		calls++
		return fmt.Errorf("decode: %w", ErrSkip)
	}}
	c, reader, dlq := newTestConsumer(t, h, WithConsumerDLQ("refresh.dlq"))

	c.process(&message{topic: "refresh", km: kafka.Message{Topic: "refresh"}})

	assert.Equal(t, 1, calls)
	assert.Empty(t, dlq.msgs)
	assert.Equal(t, 1, reader.Committed())
}

func TestConsumer_TraceHook(t *testing.T) {
	var got string
	h := funcHandler{topic: "refresh", fn: func(ctx context.Context, _ []byte) error {
		got = TraceID(ctx)
		return nil
	}}
	c, _, _ := newTestConsumer(t, h)
	c.WithConsumerHook(TraceHook())

	c.process(&message{topic: "refresh", km: kafka.Message{
		Topic:   "refresh",
		Headers: []kafka.Header{{Key: "trace_id", Value: []byte("run-1")}},
	}})

	assert.Equal(t, "run-1", got)
}

func TestConsumer_StartStop(t *testing.T) {
	done := make(chan string, 1)
	h := funcHandler{topic: "refresh", fn: func(_ context.Context, data []byte) error {
		done <- string(data)
		return nil
	}}
	c, _, _ := newTestConsumer(t, h)
	reader := &fakeReader{pending: []kafka.Message{{Topic: "refresh", Value: []byte("MSFT")}}}
	c.newReader = func(string) messageReader { return reader }

	require.NoError(t, c.Start())
	select {
	case v := <-done:
		assert.Equal(t, "MSFT", v)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not handled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.Eventually(t, func() bool { return reader.Committed() == 1 }, time.Second, 10*time.Millisecond)
}

func TestConsumer_DuplicateHandler(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	h := funcHandler{topic: "refresh", fn: func(context.Context, []byte) error { return nil }}
	require.NoError(t, c.RegisterHandler(h))
	assert.Error(t, c.RegisterHandler(h))
}

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")

	err := p.Publish(context.Background(), "optimizations", []byte("AAPL"), map[string]int{"fast": 10},
		kafka.Header{Key: "trace_id", Value: []byte("abc")})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.JSONEq(t, `{"fast":10}`, string(w.msgs[0].Value))
	assert.Equal(t, "optimizations", w.msgs[0].Topic)
	assert.Equal(t, "abc", ExtractTraceID(w.msgs[0]))

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), "optimizations", nil, []byte("raw")))
}
