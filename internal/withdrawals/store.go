package withdrawals

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
)

// Store defines withdrawal persistence.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error

	List(ctx context.Context, status string) ([]Request, error)
	// ListForAccount returns requests filed by accountID or against the
	// businesses it owns.
	ListForAccount(ctx context.Context, accountID int64) ([]Request, error)
}

// TxStore defines withdrawal operations inside a transaction.
type TxStore interface {
	// LockTarget row-locks a business account and loads its business.
	LockTarget(ctx context.Context, businessAccountID int64) (Target, error)
	UpdateAccountBalance(ctx context.Context, businessAccountID int64, balance decimal.Decimal) error
	Insert(ctx context.Context, req Request) (Request, error)
	// Lock returns the row-locked request or ErrNotFound.
	Lock(ctx context.Context, id int64) (Request, error)
	Update(ctx context.Context, req Request) error

	Ledger() ledger.TxStore
}
