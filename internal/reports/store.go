package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store answers the individual aggregate queries the stats are built from.
type Store interface {
	CountTransactions(ctx context.Context, since time.Time) (int64, error)
	Turnover(ctx context.Context, since time.Time) (decimal.Decimal, error)
	ActiveAccounts(ctx context.Context, since time.Time) (int64, error)
	NewAccounts(ctx context.Context, since time.Time) (int64, error)
	AverageBalance(ctx context.Context) (decimal.Decimal, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	TotalUsers(ctx context.Context) (int64, error)
	PendingSessions(ctx context.Context) (int64, error)
	Transactions(ctx context.Context, filter TransactionFilter) ([]TransactionRow, error)
	RecentRegistrations(ctx context.Context, limit int) ([]Registration, error)
}
