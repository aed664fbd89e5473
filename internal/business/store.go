package business

import (
	"context"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
)

// Store defines business persistence.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error

	List(ctx context.Context, status string) ([]Business, error)
	Get(ctx context.Context, id int64) (Business, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Business, error)
	AccountByBusiness(ctx context.Context, businessID int64) (Account, error)
}

// TxStore defines business operations inside a transaction.
type TxStore interface {
	Insert(ctx context.Context, b Business) (Business, error)
	// Lock returns the row-locked application or ErrNotFound.
	Lock(ctx context.Context, id int64) (Business, error)
	UpdateStatus(ctx context.Context, b Business) error
	InsertAccount(ctx context.Context, acc Account) (Account, error)
	AccountNumberExists(ctx context.Context, number string) (bool, error)

	Ledger() ledger.TxStore
}
