// Package accountstest provides an in-memory account administration store.
package accountstest

import (
	"context"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-bank/internal/accounts"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
)

// Store adapts a ledgertest.Store to accounts.Store.
type Store struct {
	Accounts *ledgertest.Store
}

// New wraps the given ledger store.
func New(l *ledgertest.Store) *Store {
	return &Store{Accounts: l}
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, accounts.TxStore) error) error {
	return s.Accounts.Serialize(func() error {
		restore := s.Accounts.Checkpoint()
		if err := fn(ctx, s); err != nil {
			restore()
			return err
		}
		return nil
	})
}

func (s *Store) Search(ctx context.Context, query string, limit, offset int) ([]ledger.Account, int, error) {
	q := strings.ToLower(query)
	var matched []ledger.Account
	for _, acc := range s.Accounts.Accounts() {
		if q == "" ||
			strings.Contains(strings.ToLower(acc.FullName), q) ||
			strings.Contains(strings.ToLower(acc.Passport), q) ||
			strings.Contains(strings.ToLower(acc.AccountNumber), q) {
			matched = append(matched, acc)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) AccountByID(ctx context.Context, id int64) (ledger.Account, error) {
	acc, ok := s.Accounts.Account(id)
	if !ok {
		return ledger.Account{}, accounts.ErrNotFound
	}
	return acc, nil
}

func (s *Store) Transactions(ctx context.Context, accountNumber string, limit int) ([]ledger.Transaction, error) {
	return s.Accounts.RecentTransactions(ctx, accountNumber, limit)
}

func (s *Store) Ledger() ledger.TxStore { return s.Accounts }

func (s *Store) Lock(ctx context.Context, id int64) (ledger.Account, error) {
	return s.AccountByID(ctx, id)
}

func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	if _, ok := s.Accounts.Account(id); !ok {
		return accounts.ErrNotFound
	}
	s.Accounts.SetActive(id, active)
	return nil
}

func (s *Store) SetRole(ctx context.Context, id int64, role string) (ledger.Account, error) {
	if !s.Accounts.SetRole(id, role) {
		return ledger.Account{}, accounts.ErrRoleNotFound
	}
	return s.AccountByID(ctx, id)
}

func (s *Store) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	if _, ok := s.Accounts.Account(id); !ok {
		return accounts.ErrNotFound
	}
	s.Accounts.SetPasswordHash(id, hash)
	return nil
}

var (
	_ accounts.Store   = (*Store)(nil)
	_ accounts.TxStore = (*Store)(nil)
)
