package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueNotifications carries customer-facing mail.
	QueueNotifications = "notifications"
	// QueueMaintenance carries periodic housekeeping.
	QueueMaintenance = "maintenance"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskSessionsExpire marks stale NFC payment sessions expired.
	TaskSessionsExpire = "nfc:sessions:expire"
	// TaskIdempotencyCleanup purges old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// IdempotencyCleanupPayload configures the retention of idempotency keys.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(3), asynq.Queue(QueueNotifications)), nil
}

// NewSessionsExpireTask builds the periodic session sweep task.
func NewSessionsExpireTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsExpire, nil, asynq.Queue(QueueMaintenance), asynq.Unique(time.Minute))
}

// NewIdempotencyCleanupTask builds the periodic idempotency purge task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueMaintenance)), nil
}
