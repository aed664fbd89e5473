// Package reportstest computes reports over an in-memory ledger.
package reportstest

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-bank/internal/reports"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Store adapts a ledgertest.Store to reports.Store.
type Store struct {
	Ledger *ledgertest.Store
	// Pending is reported as the number of pending payment sessions.
	Pending int64

	queries atomic.Int64
}

// New wraps the given ledger store.
func New(l *ledgertest.Store) *Store {
	return &Store{Ledger: l}
}

// Queries counts CountTransactions calls, which every stats load makes once.
func (s *Store) Queries() int64 {
	return s.queries.Load()
}

func (s *Store) CountTransactions(ctx context.Context, since time.Time) (int64, error) {
	s.queries.Add(1)
	var n int64
	for _, txn := range s.Ledger.Transactions() {
		if !txn.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Turnover(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, txn := range s.Ledger.Transactions() {
		if !txn.OccurredAt.Before(since) && txn.Status == ledger.StatusSuccess {
			sum = sum.Add(txn.Amount)
		}
	}
	return sum, nil
}

func (s *Store) ActiveAccounts(ctx context.Context, since time.Time) (int64, error) {
	seen := map[int64]struct{}{}
	for _, txn := range s.Ledger.Transactions() {
		if !txn.OccurredAt.Before(since) && txn.InitiatedBy != 0 {
			seen[txn.InitiatedBy] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *Store) NewAccounts(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	for _, acc := range s.Ledger.Accounts() {
		if !acc.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) AverageBalance(ctx context.Context) (decimal.Decimal, error) {
	sum, n := decimal.Zero, int64(0)
	for _, acc := range s.Ledger.Accounts() {
		if acc.IsActive {
			sum = sum.Add(acc.Balance)
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, nil
	}
	return sum.Div(decimal.NewFromInt(n)), nil
}

func (s *Store) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, acc := range s.Ledger.Accounts() {
		sum = sum.Add(acc.Balance)
	}
	return sum, nil
}

func (s *Store) TotalUsers(ctx context.Context) (int64, error) {
	return int64(len(s.Ledger.Accounts())), nil
}

func (s *Store) PendingSessions(ctx context.Context) (int64, error) {
	return s.Pending, nil
}

func (s *Store) Transactions(ctx context.Context, filter reports.TransactionFilter) ([]reports.TransactionRow, error) {
	names := map[string]string{}
	for _, acc := range s.Ledger.Accounts() {
		names[acc.AccountNumber] = acc.FullName
	}
	account := strings.ToLower(filter.Account)
	var out []reports.TransactionRow
	for _, txn := range s.Ledger.Transactions() {
		switch {
		case account != "" &&
			!strings.Contains(strings.ToLower(txn.FromAccount), account) &&
			!strings.Contains(strings.ToLower(txn.ToAccount), account):
			continue
		case !filter.From.IsZero() && txn.OccurredAt.Before(filter.From):
			continue
		case !filter.To.IsZero() && !txn.OccurredAt.Before(filter.To):
			continue
		case filter.MinAmount != nil && txn.Amount.LessThan(*filter.MinAmount):
			continue
		case filter.MaxAmount != nil && txn.Amount.GreaterThan(*filter.MaxAmount):
			continue
		}
		out = append(out, reports.TransactionRow{Transaction: txn, FromName: names[txn.FromAccount], ToName: names[txn.ToAccount]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) RecentRegistrations(ctx context.Context, limit int) ([]reports.Registration, error) {
	var out []reports.Registration
	accounts := s.Ledger.Accounts()
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
		}
		return accounts[i].ID > accounts[j].ID
	})
	for _, acc := range accounts {
		if acc.RoleName != shared.RoleUser {
			continue
		}
		out = append(out, reports.Registration{Passport: acc.Passport, FullName: acc.FullName, Balance: acc.Balance, CreatedAt: acc.CreatedAt})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ reports.Store = (*Store)(nil)
