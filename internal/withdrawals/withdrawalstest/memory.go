// Package withdrawalstest provides an in-memory withdrawal store for tests.
package withdrawalstest

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/business/businesstest"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/withdrawals"
)

// Store is an in-memory withdrawals.Store over a business store.
type Store struct {
	Businesses *businesstest.Store

	mu       sync.Mutex
	requests map[int64]withdrawals.Request
	nextID   int64
}

// New wraps the given business store.
func New(b *businesstest.Store) *Store {
	return &Store{Businesses: b, requests: make(map[int64]withdrawals.Request)}
}

// Request returns a copy of the stored request.
func (s *Store) Request(id int64) (withdrawals.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	return r, ok
}

func (s *Store) checkpoint() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := make(map[int64]withdrawals.Request, len(s.requests))
	for id, r := range s.requests {
		requests[id] = r
	}
	nextID := s.nextID
	restoreBusinesses := s.Businesses.Checkpoint()
	return func() {
		restoreBusinesses()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests, s.nextID = requests, nextID
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, withdrawals.TxStore) error) error {
	return s.Businesses.Accounts.Serialize(func() error {
		restore := s.checkpoint()
		if err := fn(ctx, s); err != nil {
			restore()
			return err
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context, status string) ([]withdrawals.Request, error) {
	return s.filter(func(r withdrawals.Request) bool { return status == "" || r.Status == status }), nil
}

func (s *Store) ListForAccount(ctx context.Context, accountID int64) ([]withdrawals.Request, error) {
	return s.filter(func(r withdrawals.Request) bool {
		if r.RequestedBy == accountID {
			return true
		}
		acc, ok := s.Businesses.Account(r.BusinessAccountID)
		if !ok {
			return false
		}
		b, ok := s.Businesses.Business(acc.BusinessID)
		return ok && b.OwnerAccountID == accountID
	}), nil
}

func (s *Store) LockTarget(ctx context.Context, businessAccountID int64) (withdrawals.Target, error) {
	acc, ok := s.Businesses.Account(businessAccountID)
	if !ok {
		return withdrawals.Target{}, business.ErrAccountNotFound
	}
	b, ok := s.Businesses.Business(acc.BusinessID)
	if !ok {
		return withdrawals.Target{}, business.ErrNotFound
	}
	return withdrawals.Target{Account: acc, Business: b}, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, businessAccountID int64, balance decimal.Decimal) error {
	return s.Businesses.SetAccountBalance(businessAccountID, balance)
}

func (s *Store) Insert(ctx context.Context, req withdrawals.Request) (withdrawals.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	req.ID = s.nextID
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) Lock(ctx context.Context, id int64) (withdrawals.Request, error) {
	r, ok := s.Request(id)
	if !ok {
		return withdrawals.Request{}, withdrawals.ErrNotFound
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, req withdrawals.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return withdrawals.ErrNotFound
	}
	s.requests[req.ID] = req
	return nil
}

func (s *Store) Ledger() ledger.TxStore { return s.Businesses.Accounts }

func (s *Store) filter(keep func(withdrawals.Request) bool) []withdrawals.Request {
	s.mu.Lock()
	all := make([]withdrawals.Request, 0, len(s.requests))
	for _, r := range s.requests {
		all = append(all, r)
	}
	s.mu.Unlock()
	var out []withdrawals.Request
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

var (
	_ withdrawals.Store   = (*Store)(nil)
	_ withdrawals.TxStore = (*Store)(nil)
)
