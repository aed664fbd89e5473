package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-bank/internal/jobs"
)

// SessionSweeper expires pending payment sessions past their deadline.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SessionsExpireJob runs the NFC session sweep.
type SessionsExpireJob struct {
	Sweeper SessionSweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSessionsExpireJob wires the sweep handler.
func NewSessionsExpireJob(sweeper SessionSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsExpireJob {
	return &SessionsExpireJob{Sweeper: sweeper, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSessionsExpire tasks.
func (j *SessionsExpireJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Sweeper == nil {
		return errors.New("sessions expire: handler not configured")
	}
	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskSessionsExpire)
	n, err := j.Sweeper.Sweep(ctx)
	if err != nil {
		loggerOrDefault(j.Logger).Error("expire nfc sessions", slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddProcessed(TaskSessionsExpire, n)
	if n > 0 {
		loggerOrDefault(j.Logger).Info("expired nfc sessions", slog.Int64("count", n))
	}
	return tracker.End(nil)
}
