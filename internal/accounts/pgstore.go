package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
)

const searchWhere = `($1::text = ''
    OR a.full_name ILIKE '%' || $1 || '%'
    OR a.passport ILIKE '%' || $1 || '%'
    OR a.account_number ILIKE '%' || $1 || '%')`

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// WithTx runs fn inside a ReadCommitted transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{q: tx, ledger: ledger.NewTxStore(tx)})
	})
}

// Search lists accounts matching query, newest first, with the total count.
func (s *PGStore) Search(ctx context.Context, query string, limit, offset int) ([]ledger.Account, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts a WHERE `+searchWhere, query).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx, `SELECT `+ledger.AccountColumns()+`
FROM accounts a JOIN roles r ON r.id = a.role_id
WHERE `+searchWhere+`
ORDER BY a.id DESC
LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		acc, err := ledger.ScanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, acc)
	}
	return out, total, rows.Err()
}

// AccountByID fetches one account.
func (s *PGStore) AccountByID(ctx context.Context, id int64) (ledger.Account, error) {
	return lockOrGet(ctx, s.pool, id, "")
}

// Transactions lists the newest entries touching accountNumber.
func (s *PGStore) Transactions(ctx context.Context, accountNumber string, limit int) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+ledger.TransactionColumns()+`
FROM transactions
WHERE from_account = $1 OR to_account = $1
ORDER BY occurred_at DESC, id DESC
LIMIT $2`, accountNumber, limit)
	if err != nil {
		return nil, err
	}
	return ledger.ScanTransactions(rows)
}

type pgTxStore struct {
	q      db.DBTX
	ledger ledger.TxStore
}

func (s *pgTxStore) Ledger() ledger.TxStore { return s.ledger }

func (s *pgTxStore) Lock(ctx context.Context, id int64) (ledger.Account, error) {
	return lockOrGet(ctx, s.q, id, "FOR UPDATE OF a")
}

func (s *pgTxStore) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.q.Exec(ctx, `UPDATE accounts SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgTxStore) SetRole(ctx context.Context, id int64, role string) (ledger.Account, error) {
	tag, err := s.q.Exec(ctx, `UPDATE accounts a SET role_id = r.id FROM roles r WHERE a.id = $1 AND r.name = $2`, id, role)
	if err != nil {
		return ledger.Account{}, err
	}
	if tag.RowsAffected() == 0 {
		return ledger.Account{}, ErrRoleNotFound
	}
	return lockOrGet(ctx, s.q, id, "")
}

func (s *pgTxStore) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := s.q.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func lockOrGet(ctx context.Context, q db.DBTX, id int64, suffix string) (ledger.Account, error) {
	acc, err := ledger.ScanAccount(q.QueryRow(ctx, `SELECT `+ledger.AccountColumns()+`
FROM accounts a JOIN roles r ON r.id = a.role_id
WHERE a.id = $1 `+suffix, id))
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return ledger.Account{}, ErrNotFound
	}
	return acc, err
}

var _ Store = (*PGStore)(nil)
