// Package pintest provides an in-memory PIN store for tests.
package pintest

import (
	"context"
	"sync"

	"github.com/odyssey-erp/odyssey-bank/internal/pin"
)

type key struct{ account, tag int64 }

// Store is an in-memory pin.Store and pin.TxStore.
type Store struct {
	txMu sync.Mutex

	mu      sync.Mutex
	records map[key]pin.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{records: make(map[key]pin.Record)}
}

// Record returns a copy of the stored record.
func (s *Store) Record(accountID, tagID int64) (pin.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key{accountID, tagID}]
	return rec, ok
}

// Checkpoint snapshots the records and returns a function restoring them.
func (s *Store) Checkpoint() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[key]pin.Record, len(s.records))
	for k, rec := range s.records {
		snapshot[k] = rec
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records = snapshot
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, pin.TxStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	restore := s.Checkpoint()
	if err := fn(ctx, s); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, accountID, tagID int64) (pin.Record, error) {
	rec, ok := s.Record(accountID, tagID)
	if !ok {
		return pin.Record{}, pin.ErrNotFound
	}
	return rec, nil
}

func (s *Store) LockRecord(ctx context.Context, accountID, tagID int64) (pin.Record, error) {
	return s.Get(ctx, accountID, tagID)
}

func (s *Store) SaveRecord(ctx context.Context, rec pin.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key{rec.AccountID, rec.TagID}] = rec
	return nil
}

var (
	_ pin.Store   = (*Store)(nil)
	_ pin.TxStore = (*Store)(nil)
)
