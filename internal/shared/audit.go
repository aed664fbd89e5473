package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions written by the back-office modules.
const (
	AuditBusinessApproved   = "business.approved"
	AuditBusinessRejected   = "business.rejected"
	AuditWithdrawalApproved = "withdrawal.approved"
	AuditWithdrawalRejected = "withdrawal.rejected"
	AuditAccountCreated     = "account.created"
	AuditAccountBlocked     = "account.blocked"
	AuditAccountUnblocked   = "account.unblocked"
	AuditRoleChanged        = "account.role_changed"
	AuditPasswordReset      = "account.password_reset"
	AuditDeposit            = "account.deposit"
	AuditRoleUpdated        = "role.updated"
	AuditTagRegistered      = "nfc.tag_registered"
	AuditTagDeactivated     = "nfc.tag_deactivated"
	AuditPinReset           = "nfc.pin_reset"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.Meta == nil {
		log.Meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES (NULLIF($1::bigint, 0), $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
