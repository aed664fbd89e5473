package nfc

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
)

// Store defines tag and payment session persistence.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error

	TagByID(ctx context.Context, id int64) (Tag, error)
	ListTags(ctx context.Context) ([]Tag, error)
	TagStats(ctx context.Context, tagID int64) (TagStats, error)
	SessionByToken(ctx context.Context, token string) (Session, error)
	// ExpireSessions marks pending sessions past their expiry as expired.
	ExpireSessions(ctx context.Context, now time.Time) (int64, error)
}

// TxStore defines operations inside a transaction. Ledger and Pins are
// bound to the same transaction.
type TxStore interface {
	Owner(ctx context.Context, accountID int64) (Owner, error)
	InsertTag(ctx context.Context, tag Tag) (Tag, error)
	SetTagActive(ctx context.Context, id int64, active bool) error
	InsertSession(ctx context.Context, sess Session) (Session, error)
	// LockSession returns the row-locked session or ErrSessionNotFound.
	LockSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, sess Session) error

	Ledger() ledger.TxStore
	Pins() pin.TxStore
}
