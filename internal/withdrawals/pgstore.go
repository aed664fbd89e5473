package withdrawals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
)

const requestSelect = `SELECT w.id, w.business_account_id, ba.account_number, b.business_name, w.requested_by, w.amount,
       w.purpose, w.recipient_name, w.recipient_account, w.recipient_bank, w.status, w.admin_notes,
       w.processed_by, w.processed_at, w.created_at
FROM withdrawal_requests w
JOIN business_accounts ba ON ba.id = w.business_account_id
JOIN businesses b ON b.id = ba.business_id`

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// WithTx runs fn inside a ReadCommitted transaction shared with the ledger.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{tx: tx, ledger: ledger.NewTxStore(tx)})
	})
}

// List returns requests newest first, filtered by status when set.
func (s *PGStore) List(ctx context.Context, status string) ([]Request, error) {
	rows, err := s.pool.Query(ctx, requestSelect+`
WHERE ($1::text = '' OR w.status = $1::text)
ORDER BY w.created_at DESC, w.id DESC`, status)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

// ListForAccount returns requests filed by or owned by accountID.
func (s *PGStore) ListForAccount(ctx context.Context, accountID int64) ([]Request, error) {
	rows, err := s.pool.Query(ctx, requestSelect+`
WHERE w.requested_by = $1 OR b.owner_account_id = $1
ORDER BY w.created_at DESC, w.id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

type pgTxStore struct {
	tx     pgx.Tx
	ledger ledger.TxStore
}

func (s *pgTxStore) Ledger() ledger.TxStore { return s.ledger }

func (s *pgTxStore) LockTarget(ctx context.Context, businessAccountID int64) (Target, error) {
	var t Target
	a, b := &t.Account, &t.Business
	err := s.tx.QueryRow(ctx, `SELECT ba.id, ba.business_id, ba.account_number, ba.account_type, ba.balance, ba.currency,
       ba.is_active, ba.credit_limit, ba.overdraft_allowed, ba.created_at,
       b.id, b.owner_account_id, b.business_name, b.email, b.status
FROM business_accounts ba
JOIN businesses b ON b.id = ba.business_id
WHERE ba.id = $1
FOR UPDATE OF ba`, businessAccountID).Scan(
		&a.ID, &a.BusinessID, &a.AccountNumber, &a.AccountType, &a.Balance, &a.Currency,
		&a.IsActive, &a.CreditLimit, &a.OverdraftAllowed, &a.CreatedAt,
		&b.ID, &b.OwnerAccountID, &b.BusinessName, &b.Email, &b.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, business.ErrAccountNotFound
	}
	return t, err
}

func (s *pgTxStore) UpdateAccountBalance(ctx context.Context, businessAccountID int64, balance decimal.Decimal) error {
	_, err := s.tx.Exec(ctx, `UPDATE business_accounts SET balance = $2 WHERE id = $1`, businessAccountID, balance)
	return err
}

func (s *pgTxStore) Insert(ctx context.Context, req Request) (Request, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO withdrawal_requests (business_account_id, requested_by, amount, purpose,
    recipient_name, recipient_account, recipient_bank, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`, req.BusinessAccountID, req.RequestedBy, req.Amount, req.Purpose,
		req.RecipientName, req.RecipientAccount, req.RecipientBank, req.Status, req.CreatedAt).Scan(&req.ID)
	return req, err
}

func (s *pgTxStore) Lock(ctx context.Context, id int64) (Request, error) {
	return scanRequest(s.tx.QueryRow(ctx, requestSelect+`
WHERE w.id = $1
FOR UPDATE OF w`, id))
}

func (s *pgTxStore) Update(ctx context.Context, req Request) error {
	_, err := s.tx.Exec(ctx, `UPDATE withdrawal_requests
SET status = $2, admin_notes = $3, processed_by = $4, processed_at = $5
WHERE id = $1`, req.ID, req.Status, req.AdminNotes, req.ProcessedBy, req.ProcessedAt)
	return err
}

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.BusinessAccountID, &r.AccountNumber, &r.BusinessName, &r.RequestedBy, &r.Amount,
		&r.Purpose, &r.RecipientName, &r.RecipientAccount, &r.RecipientBank, &r.Status, &r.AdminNotes,
		&r.ProcessedBy, &r.ProcessedAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return r, err
}

func scanRequests(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
