package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoutingMovementPosted is the event routing key for committed movements.
const RoutingMovementPosted = "ledger.movement.posted"

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// CacheInvalidator drops cached aggregates derived from balances.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MovementRecorder counts committed movements.
type MovementRecorder interface {
	RecordMovement(kind string, amount decimal.Decimal)
}

// MovementEvent is the payload published for each committed movement.
type MovementEvent struct {
	Reference   uuid.UUID       `json:"reference"`
	Type        string          `json:"type"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Hooks run after a movement commits. Every field is optional and failures
// are logged, never returned: the money has already moved.
type Hooks struct {
	Events  EventPublisher
	Cache   CacheInvalidator
	Metrics MovementRecorder
	Logger  *slog.Logger
}

// Committed fans a committed posting out to the configured hooks.
func (h Hooks) Committed(ctx context.Context, postings ...Posting) {
	for _, p := range postings {
		txn := p.Transaction
		if h.Metrics != nil {
			h.Metrics.RecordMovement(txn.Type, txn.Amount)
		}
		if h.Events != nil {
			event := MovementEvent{
				Reference:   txn.Reference,
				Type:        txn.Type,
				FromAccount: txn.FromAccount,
				ToAccount:   txn.ToAccount,
				Amount:      txn.Amount,
				OccurredAt:  txn.OccurredAt,
			}
			if err := h.Events.Publish(ctx, RoutingMovementPosted, event); err != nil {
				h.logger().Warn("publish movement event", slog.String("reference", txn.Reference.String()), slog.Any("error", err))
			}
		}
	}
	if len(postings) > 0 {
		h.Invalidate(ctx)
	}
}

// Invalidate drops cached report aggregates. Writes that change reported
// counters without moving money (new accounts, opened or expired payment
// sessions) call it directly.
func (h Hooks) Invalidate(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Bump(ctx); err != nil {
		h.logger().Warn("bump report cache", slog.Any("error", err))
	}
}

func (h Hooks) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
