package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store defines ledger data access.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error

	AccountByID(ctx context.Context, id int64) (Account, error)
	AccountByNumber(ctx context.Context, number string) (Account, error)
	RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]Transaction, error)
}

// TxStore defines ledger operations within a transaction. Other modules
// receive a TxStore bound to their own transaction so their writes and the
// ledger writes commit together.
type TxStore interface {
	// LockAccounts row-locks the accounts with the given numbers in
	// ascending id order and returns those that exist.
	LockAccounts(ctx context.Context, numbers []string) ([]Account, error)
	UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	InsertAccount(ctx context.Context, input NewAccount) (Account, error)
	AccountNumberExists(ctx context.Context, number string) (bool, error)
}
