package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
)

const accountColumns = `a.id, a.passport, a.full_name, a.account_number, a.balance, a.is_active,
       a.role_id, r.name, a.email, a.phone, a.created_at`

const transactionColumns = `id, reference, occurred_at, type, from_account, to_account, amount, status, description, initiated_by`

// lockAccountsSQL locks account rows in primary-key order so concurrent
// movements over the same pair cannot deadlock.
const lockAccountsSQL = `SELECT ` + accountColumns + `
FROM accounts a JOIN roles r ON r.id = a.role_id
WHERE a.account_number = ANY($1)
ORDER BY a.id
FOR UPDATE OF a`

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL backed ledger store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// WithTx runs fn inside a ReadCommitted transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// AccountByID fetches an account by id.
func (s *PGStore) AccountByID(ctx context.Context, id int64) (Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+`
FROM accounts a JOIN roles r ON r.id = a.role_id
WHERE a.id = $1`, id)
	return scanAccount(row)
}

// AccountByNumber fetches an account by its number.
func (s *PGStore) AccountByNumber(ctx context.Context, number string) (Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+`
FROM accounts a JOIN roles r ON r.id = a.role_id
WHERE a.account_number = $1`, number)
	return scanAccount(row)
}

// RecentTransactions lists the newest entries touching accountNumber.
func (s *PGStore) RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transactionColumns+`
FROM transactions
WHERE from_account = $1 OR to_account = $1
ORDER BY occurred_at DESC, id DESC
LIMIT $2`, accountNumber, limit)
	if err != nil {
		return nil, err
	}
	return ScanTransactions(rows)
}

type pgTxStore struct {
	q db.DBTX
}

// NewTxStore binds a TxStore to an open pgx transaction.
func NewTxStore(tx pgx.Tx) TxStore {
	return &pgTxStore{q: tx}
}

func (s *pgTxStore) LockAccounts(ctx context.Context, numbers []string) ([]Account, error) {
	rows, err := s.q.Query(ctx, lockAccountsSQL, numbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *pgTxStore) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	tag, err := s.q.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE id = $1`, accountID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *pgTxStore) InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	err := s.q.QueryRow(ctx, `INSERT INTO transactions
    (reference, occurred_at, type, from_account, to_account, amount, status, description, initiated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9::bigint, 0))
RETURNING id, occurred_at`,
		txn.Reference, txn.OccurredAt, txn.Type, txn.FromAccount, txn.ToAccount,
		txn.Amount, txn.Status, txn.Description, txn.InitiatedBy,
	).Scan(&txn.ID, &txn.OccurredAt)
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (s *pgTxStore) InsertAccount(ctx context.Context, input NewAccount) (Account, error) {
	acc := Account{
		Passport:      input.Passport,
		FullName:      input.FullName,
		AccountNumber: input.AccountNumber,
		Balance:       input.Balance,
		IsActive:      true,
		RoleName:      input.RoleName,
		Email:         input.Email,
		Phone:         input.Phone,
	}
	err := s.q.QueryRow(ctx, `INSERT INTO accounts
    (passport, full_name, account_number, balance, role_id, password_hash, email, phone)
SELECT $1::text, $2::text, $3::text, $4::numeric, r.id, $6::text, $7::text, $8::text
FROM roles r WHERE r.name = $5
RETURNING id, role_id, created_at`,
		input.Passport, input.FullName, input.AccountNumber, input.Balance,
		input.RoleName, input.PasswordHash, input.Email, input.Phone,
	).Scan(&acc.ID, &acc.RoleID, &acc.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Account{}, ErrAccountExists
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrInvalidAccount
		}
		return Account{}, err
	}
	return acc, nil
}

func (s *pgTxStore) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, number).Scan(&exists)
	return exists, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID, &acc.Passport, &acc.FullName, &acc.AccountNumber, &acc.Balance, &acc.IsActive,
		&acc.RoleID, &acc.RoleName, &acc.Email, &acc.Phone, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

// ScanTransactions drains rows selected with the ledger transaction
// column order and closes them.
func ScanTransactions(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var (
			txn         Transaction
			initiatedBy *int64
		)
		if err := rows.Scan(
			&txn.ID, &txn.Reference, &txn.OccurredAt, &txn.Type, &txn.FromAccount, &txn.ToAccount,
			&txn.Amount, &txn.Status, &txn.Description, &initiatedBy,
		); err != nil {
			return nil, err
		}
		if initiatedBy != nil {
			txn.InitiatedBy = *initiatedBy
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// TransactionColumns exposes the column list ScanTransactions expects.
func TransactionColumns() string {
	return transactionColumns
}

var _ Store = (*PGStore)(nil)

// AccountColumns exposes the account select list. Queries using it alias
// accounts as a and join roles as r.
func AccountColumns() string {
	return accountColumns
}

// ScanAccount scans a row selected with AccountColumns.
func ScanAccount(row pgx.Row) (Account, error) {
	return scanAccount(row)
}
