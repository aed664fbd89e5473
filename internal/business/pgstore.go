package business

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
)

const businessColumns = `id, owner_account_id, business_name, legal_name, tax_id, charter_capital, address, email, phone,
       status, admin_notes, processed_by, processed_at, created_at`

// AccountColumns lists business_accounts columns in scan order.
const AccountColumns = `id, business_id, account_number, account_type, balance, currency, is_active, credit_limit, overdraft_allowed, created_at`

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

// List returns applications newest first, filtered by status when set.
func (s *PGStore) List(ctx context.Context, status string) ([]Business, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+businessColumns+`
FROM businesses
WHERE ($1::text = '' OR status = $1::text)
ORDER BY created_at DESC, id DESC`, status)
	if err != nil {
		return nil, err
	}
	return scanBusinesses(rows)
}

// Get loads one application.
func (s *PGStore) Get(ctx context.Context, id int64) (Business, error) {
	return scanBusiness(s.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
}

// ListByOwner returns the applications of one customer.
func (s *PGStore) ListByOwner(ctx context.Context, ownerID int64) ([]Business, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+businessColumns+`
FROM businesses WHERE owner_account_id = $1
ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanBusinesses(rows)
}

// AccountByBusiness loads the account opened for a business.
func (s *PGStore) AccountByBusiness(ctx context.Context, businessID int64) (Account, error) {
	return ScanAccount(s.pool.QueryRow(ctx, `SELECT `+AccountColumns+` FROM business_accounts WHERE business_id = $1`, businessID))
}

type pgTxStore struct {
	tx     pgx.Tx
	ledger ledger.TxStore
}

func (s *pgTxStore) Ledger() ledger.TxStore { return s.ledger }

func (s *pgTxStore) Insert(ctx context.Context, b Business) (Business, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO businesses (owner_account_id, business_name, legal_name, tax_id, charter_capital,
    address, email, phone, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`, b.OwnerAccountID, b.BusinessName, b.LegalName, b.TaxID, b.CharterCapital,
		b.Address, b.Email, b.Phone, b.Status, b.CreatedAt).Scan(&b.ID)
	if db.IsUniqueViolation(err, "businesses_tax_id_key") {
		return Business{}, ErrTaxIDExists
	}
	return b, err
}

func (s *pgTxStore) Lock(ctx context.Context, id int64) (Business, error) {
	return scanBusiness(s.tx.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1 FOR UPDATE`, id))
}

func (s *pgTxStore) UpdateStatus(ctx context.Context, b Business) error {
	_, err := s.tx.Exec(ctx, `UPDATE businesses
SET status = $2, admin_notes = $3, processed_by = $4, processed_at = $5
WHERE id = $1`, b.ID, b.Status, b.AdminNotes, b.ProcessedBy, b.ProcessedAt)
	return err
}

func (s *pgTxStore) InsertAccount(ctx context.Context, acc Account) (Account, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO business_accounts (business_id, account_number, account_type, balance, currency,
    is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, acc.BusinessID, acc.AccountNumber, acc.AccountType, acc.Balance, acc.Currency, acc.IsActive, acc.CreatedAt).Scan(&acc.ID)
	return acc, err
}

func (s *pgTxStore) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM business_accounts WHERE account_number = $1)`, number).Scan(&exists)
	return exists, err
}

func scanBusiness(row pgx.Row) (Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.OwnerAccountID, &b.BusinessName, &b.LegalName, &b.TaxID, &b.CharterCapital, &b.Address,
		&b.Email, &b.Phone, &b.Status, &b.AdminNotes, &b.ProcessedBy, &b.ProcessedAt, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Business{}, ErrNotFound
	}
	return b, err
}

func scanBusinesses(rows pgx.Rows) ([]Business, error) {
	defer rows.Close()
	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ScanAccount scans one business_accounts row selected with AccountColumns.
func ScanAccount(row pgx.Row) (Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.BusinessID, &acc.AccountNumber, &acc.AccountType, &acc.Balance, &acc.Currency,
		&acc.IsActive, &acc.CreditLimit, &acc.OverdraftAllowed, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return acc, err
}

var _ Store = (*PGStore)(nil)
