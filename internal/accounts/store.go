package accounts

import (
	"context"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
)

// Store defines account administration data access.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error

	Search(ctx context.Context, query string, limit, offset int) ([]ledger.Account, int, error)
	AccountByID(ctx context.Context, id int64) (ledger.Account, error)
	Transactions(ctx context.Context, accountNumber string, limit int) ([]ledger.Transaction, error)
}

// TxStore defines account mutations within a transaction.
type TxStore interface {
	Ledger() ledger.TxStore
	Lock(ctx context.Context, id int64) (ledger.Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetRole(ctx context.Context, id int64, role string) (ledger.Account, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
}
