package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"WindowOpt/internal/domain/models"
	domrepo "WindowOpt/internal/domain/repository"
	pkgkafka "WindowOpt/pkg/kafka"
	applogger "WindowOpt/pkg/logger"
)

// Refresher is the part of OptimizedSymbolService the refresh consumers need.
type Refresher interface {
	Refresh(ctx context.Context, symbol, period string) (models.SymbolOptimization, error)
}

// errUnprocessable marks refresh requests that no retry can fix.
var errUnprocessable = errors.New("unprocessable refresh request")

// refreshRunner decodes a refresh request and runs it. Both the Kafka handler and
// the Redis queue job delegate here.
type refreshRunner struct {
	svc     Refresher
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func newRefreshRunner(svc Refresher, metrics domrepo.Metrics, l *applogger.Logger) refreshRunner {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return refreshRunner{svc: svc, metrics: metrics, l: l}
}

// run accepts {"symbol": "...", "period": "..."} or a bare ticker string. A refresh
// already running elsewhere counts as done.
func (r refreshRunner) run(ctx context.Context, source string, b []byte) error {
	msg, err := decodeRefresh(b)
	if err != nil {
		r.metrics.RecordError(source + "_unmarshal")
		return fmt.Errorf("%w: %w", errUnprocessable, err)
	}

	_, err = r.svc.Refresh(ctx, msg.Symbol, msg.Period)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrRefreshInProgress):
		if r.l != nil {
			r.l.Info("refresh skipped, already running",
				applogger.String("symbol", msg.Symbol),
				applogger.String("source", source),
				applogger.String("trace_id", pkgkafka.TraceID(ctx)))
		}
		return nil
	case errors.Is(err, models.ErrInvalidSymbol), errors.Is(err, models.ErrInvalidPeriod):
		return fmt.Errorf("%w: %w", errUnprocessable, err)
	default:
		return err
	}
}

// KafkaRefreshHandler consumes refresh requests and recomputes the named symbol.
type KafkaRefreshHandler struct {
	topic  string
	runner refreshRunner
}

func NewKafkaRefreshHandler(topic string, svc Refresher, metrics domrepo.Metrics, l *applogger.Logger) *KafkaRefreshHandler {
	return &KafkaRefreshHandler{topic: topic, runner: newRefreshRunner(svc, metrics, l)}
}

func (h *KafkaRefreshHandler) Topic() string { return h.topic }

// Handle refreshes the requested symbol. Malformed requests are skipped.
func (h *KafkaRefreshHandler) Handle(ctx context.Context, b []byte) error {
	err := h.runner.run(ctx, "consumer", b)
	if errors.Is(err, errUnprocessable) {
		return fmt.Errorf("%w: %v", pkgkafka.ErrSkip, err)
	}
	return err
}

func decodeRefresh(b []byte) (models.RefreshMessage, error) {
	var msg models.RefreshMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		var sym string
		if err2 := json.Unmarshal(b, &sym); err2 != nil {
			return msg, err
		}
		msg.Symbol = sym
	}
	if msg.Symbol == "" {
		return msg, errors.New("refresh message without symbol")
	}
	return msg, nil
}

var _ pkgkafka.MessageHandler = (*KafkaRefreshHandler)(nil)
