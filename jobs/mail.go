package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-bank/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// EmailSender delivers a rendered email.
type EmailSender interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// MailJob delivers queued emails.
type MailJob struct {
	Sender  EmailSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMailJob wires the mail delivery handler.
func NewMailJob(sender EmailSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	return &MailJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks. Malformed payloads are not retried.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sender == nil {
		return errors.New("mail: sender not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode mail payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("mail without recipient: %w", asynq.SkipRetry)
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskTypeSendEmail)
	err := j.Sender.Send(ctx, payload)
	if err != nil {
		loggerOrDefault(j.Logger).Warn("send email", slog.String("subject", payload.Subject), slog.Any("error", err))
	}
	return tracker.End(err)
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
