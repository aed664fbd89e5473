// Package ledgertest provides an in-memory ledger store for tests of the
// ledger and of the modules that post through it.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
)

// Store is an in-memory ledger.Store and ledger.TxStore. WithTx runs one
// transaction at a time and restores the previous state when fn fails.
type Store struct {
	txMu sync.Mutex

	mu           sync.Mutex
	accounts     map[int64]ledger.Account
	passwords    map[int64]string
	transactions []ledger.Transaction
	nextID       int64
	nextTxnID    int64
	lockLog      [][]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:  make(map[int64]ledger.Account),
		passwords: make(map[int64]string),
	}
}

// Seed inserts an account as-is, assigning an id when missing.
func (s *Store) Seed(acc ledger.Account) ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == 0 {
		s.nextID++
		acc.ID = s.nextID
	} else if acc.ID > s.nextID {
		s.nextID = acc.ID
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	s.accounts[acc.ID] = acc
	return acc
}

// Balance returns the balance of accountNumber, or zero when unknown.
func (s *Store) Balance(accountNumber string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.AccountNumber == accountNumber {
			return acc.Balance
		}
	}
	return decimal.Zero
}

// Account returns a copy of the account with the given id.
func (s *Store) Account(id int64) (ledger.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	return acc, ok
}

// SetActive flips the active flag of an account.
func (s *Store) SetActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[id]; ok {
		acc.IsActive = active
		s.accounts[id] = acc
	}
}

// PasswordHash returns the stored hash of an account created via InsertAccount.
func (s *Store) PasswordHash(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwords[id]
}

// SetPasswordHash replaces the stored password hash of an account.
func (s *Store) SetPasswordHash(id int64, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[id] = hash
}

// SetRole moves an account to the named role. Unknown roles report false.
func (s *Store) SetRole(id int64, name string) bool {
	role, ok := RoleID(name)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accounts[id]
	if !found {
		return false
	}
	acc.RoleID, acc.RoleName = role, name
	s.accounts[id] = acc
	return true
}

// Accounts returns every account ordered by id.
func (s *Store) Accounts() []ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transactions returns every committed ledger entry in insertion order.
func (s *Store) Transactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.transactions...)
}

// LockLog returns the id order of every LockAccounts call.
func (s *Store) LockLog() [][]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int64(nil), s.lockLog...)
}

// Checkpoint snapshots the state and returns a function restoring it.
// Stores of other modules call it to join their rollback with the ledger's.
func (s *Store) Checkpoint() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make(map[int64]ledger.Account, len(s.accounts))
	for id, acc := range s.accounts {
		accounts[id] = acc
	}
	passwords := make(map[int64]string, len(s.passwords))
	for id, hash := range s.passwords {
		passwords[id] = hash
	}
	txns := append([]ledger.Transaction(nil), s.transactions...)
	nextID, nextTxnID := s.nextID, s.nextTxnID
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.accounts = accounts
		s.passwords = passwords
		s.transactions = txns
		s.nextID, s.nextTxnID = nextID, nextTxnID
	}
}

// Serialize runs fn while holding the transaction lock.
func (s *Store) Serialize(fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn()
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, ledger.TxStore) error) error {
	return s.Serialize(func() error {
		restore := s.Checkpoint()
		if err := fn(ctx, s); err != nil {
			restore()
			return err
		}
		return nil
	})
}

func (s *Store) AccountByID(ctx context.Context, id int64) (ledger.Account, error) {
	acc, ok := s.Account(id)
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Store) AccountByNumber(ctx context.Context, number string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.AccountNumber == number {
			return acc, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (s *Store) RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Transaction
	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		txn := s.transactions[i]
		if txn.FromAccount == accountNumber || txn.ToAccount == accountNumber {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *Store) LockAccounts(ctx context.Context, numbers []string) ([]ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		want[n] = struct{}{}
	}
	var out []ledger.Account
	for _, acc := range s.accounts {
		if _, ok := want[acc.AccountNumber]; ok {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	ids := make([]int64, 0, len(out))
	for _, acc := range out {
		ids = append(ids, acc.ID)
	}
	s.lockLog = append(s.lockLog, ids)
	return out, nil
}

func (s *Store) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	acc.Balance = balance
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxnID++
	txn.ID = s.nextTxnID
	s.transactions = append(s.transactions, txn)
	return txn, nil
}

func (s *Store) InsertAccount(ctx context.Context, input ledger.NewAccount) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.Passport == input.Passport || acc.AccountNumber == input.AccountNumber {
			return ledger.Account{}, ledger.ErrAccountExists
		}
	}
	role, ok := RoleID(input.RoleName)
	if !ok {
		return ledger.Account{}, ledger.ErrInvalidAccount
	}
	s.nextID++
	acc := ledger.Account{
		ID:            s.nextID,
		Passport:      input.Passport,
		FullName:      input.FullName,
		AccountNumber: input.AccountNumber,
		Balance:       input.Balance,
		IsActive:      true,
		RoleID:        role,
		RoleName:      input.RoleName,
		Email:         input.Email,
		Phone:         input.Phone,
		CreatedAt:     time.Now().UTC(),
	}
	s.accounts[acc.ID] = acc
	s.passwords[acc.ID] = input.PasswordHash
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

// RoleID mirrors the role ids seeded by the initial migration.
func RoleID(name string) (int64, bool) {
	switch name {
	case "super_admin":
		return 1, true
	case "special_admin":
		return 2, true
	case "admin":
		return 3, true
	case "digital_investigator":
		return 4, true
	case "passport_registrar":
		return 5, true
	case "user":
		return 6, true
	case "business":
		return 7, true
	default:
		return 0, false
	}
}

var (
	_ ledger.Store   = (*Store)(nil)
	_ ledger.TxStore = (*Store)(nil)
)
