package pin

import "context"

// Store defines PIN record persistence.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Get(ctx context.Context, accountID, tagID int64) (Record, error)
}

// TxStore defines record operations inside a transaction.
type TxStore interface {
	// LockRecord returns the row-locked record or ErrNotFound.
	LockRecord(ctx context.Context, accountID, tagID int64) (Record, error)
	SaveRecord(ctx context.Context, rec Record) error
}
