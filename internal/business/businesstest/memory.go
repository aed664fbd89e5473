// Package businesstest provides an in-memory business store for tests of
// onboarding and withdrawals.
package businesstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
)

// Store is an in-memory business.Store whose transactions also cover the
// wrapped ledger store.
type Store struct {
	Accounts *ledgertest.Store

	mu          sync.Mutex
	businesses  map[int64]business.Business
	accounts    map[int64]business.Account
	nextID      int64
	nextAccount int64
}

// New wraps the given ledger store.
func New(l *ledgertest.Store) *Store {
	return &Store{
		Accounts:   l,
		businesses: make(map[int64]business.Business),
		accounts:   make(map[int64]business.Account),
	}
}

// SeedAccount stores a business account as-is, assigning an id when missing.
func (s *Store) SeedAccount(acc business.Account) business.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == 0 {
		s.nextAccount++
		acc.ID = s.nextAccount
	}
	s.accounts[acc.ID] = acc
	return acc
}

// Seed stores an application as-is, assigning an id when missing.
func (s *Store) Seed(b business.Business) business.Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	}
	s.businesses[b.ID] = b
	return b
}

// Business returns a copy of the stored application.
func (s *Store) Business(id int64) (business.Business, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	return b, ok
}

// Account returns a copy of the stored business account.
func (s *Store) Account(id int64) (business.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	return acc, ok
}

// SetAccountBalance overwrites a business account balance.
func (s *Store) SetAccountBalance(id int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return business.ErrAccountNotFound
	}
	acc.Balance = balance
	s.accounts[id] = acc
	return nil
}

// AccountCount returns the number of business accounts.
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Checkpoint snapshots the business and ledger state and returns a
// function restoring both.
func (s *Store) Checkpoint() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	businesses := make(map[int64]business.Business, len(s.businesses))
	for id, b := range s.businesses {
		businesses[id] = b
	}
	accounts := make(map[int64]business.Account, len(s.accounts))
	for id, acc := range s.accounts {
		accounts[id] = acc
	}
	nextID, nextAccount := s.nextID, s.nextAccount
	restoreLedger := s.Accounts.Checkpoint()
	return func() {
		restoreLedger()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.businesses, s.accounts = businesses, accounts
		s.nextID, s.nextAccount = nextID, nextAccount
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, business.TxStore) error) error {
	return s.Accounts.Serialize(func() error {
		restore := s.Checkpoint()
		if err := fn(ctx, s); err != nil {
			restore()
			return err
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context, status string) ([]business.Business, error) {
	return s.filter(func(b business.Business) bool { return status == "" || b.Status == status }), nil
}

func (s *Store) Get(ctx context.Context, id int64) (business.Business, error) {
	b, ok := s.Business(id)
	if !ok {
		return business.Business{}, business.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]business.Business, error) {
	return s.filter(func(b business.Business) bool { return b.OwnerAccountID == ownerID }), nil
}

func (s *Store) AccountByBusiness(ctx context.Context, businessID int64) (business.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.BusinessID == businessID {
			return acc, nil
		}
	}
	return business.Account{}, business.ErrAccountNotFound
}

func (s *Store) Insert(ctx context.Context, b business.Business) (business.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.businesses {
		if existing.TaxID == b.TaxID {
			return business.Business{}, business.ErrTaxIDExists
		}
	}
	s.nextID++
	b.ID = s.nextID
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.businesses[b.ID] = b
	return b, nil
}

func (s *Store) Lock(ctx context.Context, id int64) (business.Business, error) {
	return s.Get(ctx, id)
}

func (s *Store) UpdateStatus(ctx context.Context, b business.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[b.ID]; !ok {
		return business.ErrNotFound
	}
	s.businesses[b.ID] = b
	return nil
}

func (s *Store) InsertAccount(ctx context.Context, acc business.Account) (business.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAccount++
	acc.ID = s.nextAccount
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *Store) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.AccountNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) filter(keep func(business.Business) bool) []business.Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []business.Business
	for _, b := range s.businesses {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) Ledger() ledger.TxStore { return s.Accounts }

var (
	_ business.Store   = (*Store)(nil)
	_ business.TxStore = (*Store)(nil)
)
