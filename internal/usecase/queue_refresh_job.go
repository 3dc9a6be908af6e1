package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domrepo "WindowOpt/internal/domain/repository"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/queue"
)

// RefreshJobType is the queue message type for asynchronous refreshes.
const RefreshJobType = "optimization.refresh"

// RefreshJob runs refreshes enqueued on the Redis queue.
type RefreshJob struct {
	runner refreshRunner
}

func NewRefreshJob(svc Refresher, metrics domrepo.Metrics, l *applogger.Logger) *RefreshJob {
	return &RefreshJob{runner: newRefreshRunner(svc, metrics, l)}
}

func (j *RefreshJob) Name() string { return "optimization-refresh" }

func (j *RefreshJob) Type() string { return RefreshJobType }

func (j *RefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	err := j.runner.run(ctx, "queue", payload)
	if errors.Is(err, errUnprocessable) {
		return fmt.Errorf("%w: %v", queue.ErrDiscard, err)
	}
	return err
}

var _ queue.Job = (*RefreshJob)(nil)
