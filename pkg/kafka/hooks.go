package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Returning a non-nil error from BeforeHandle skips the handler and sends the
// message straight to error processing (OnError, DLQ, and offset commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, err error)
}

// NoopHook is a default hook that does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, _ kafka.Message, data []byte) (context.Context, []byte, error) {
	return ctx, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, error) {}

// HookFuncs implements ConsumerHook from plain functions. Nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, string, kafka.Message, []byte) (context.Context, []byte, error)
	After  func(context.Context, string, kafka.Message, error)
	Err    func(context.Context, string, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, []byte, error) {
	if h.Before == nil {
		return ctx, data, nil
	}
	return h.Before(ctx, topic, km, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, topic, km, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, topic string, km kafka.Message, err error) {
	if h.Err != nil {
		h.Err(ctx, topic, km, err)
	}
}

type ctxKey string

// CtxTraceID holds the correlation id taken from the trace_id header.
const CtxTraceID ctxKey = "kafka_trace_id"

// WithTraceID sets trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, CtxTraceID, traceID)
}

// TraceID returns the trace id stored by WithTraceID.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(CtxTraceID).(string)
	return v
}

// ExtractTraceID tries to get trace id from Kafka headers.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "trace_id" && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}

// TraceHook copies the trace_id header into the handler context.
func TraceHook() ConsumerHook {
	return HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, []byte, error) {
			return WithTraceID(ctx, ExtractTraceID(km)), data, nil
		},
	}
}
