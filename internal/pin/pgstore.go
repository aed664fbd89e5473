package pin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
)

const recordColumns = `account_id, tag_id, pin_hash, pin_salt, attempts, is_locked, last_attempt_at, updated_at`

const lockRecordSQL = `SELECT ` + recordColumns + ` FROM pin_records WHERE account_id = $1 AND tag_id = $2 FOR UPDATE`

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// WithTx runs fn inside a ReadCommitted transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// Get loads a record without locking it.
func (s *PGStore) Get(ctx context.Context, accountID, tagID int64) (Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM pin_records WHERE account_id = $1 AND tag_id = $2`, accountID, tagID)
	return scanRecord(row)
}

type pgTxStore struct {
	q db.DBTX
}

// NewTxStore binds a TxStore to an open pgx transaction.
func NewTxStore(tx pgx.Tx) TxStore {
	return &pgTxStore{q: tx}
}

func (s *pgTxStore) LockRecord(ctx context.Context, accountID, tagID int64) (Record, error) {
	row := s.q.QueryRow(ctx, lockRecordSQL, accountID, tagID)
	return scanRecord(row)
}

func (s *pgTxStore) SaveRecord(ctx context.Context, rec Record) error {
	_, err := s.q.Exec(ctx, `INSERT INTO pin_records (account_id, tag_id, pin_hash, pin_salt, attempts, is_locked, last_attempt_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (account_id, tag_id) DO UPDATE SET
    pin_hash = EXCLUDED.pin_hash,
    pin_salt = EXCLUDED.pin_salt,
    attempts = EXCLUDED.attempts,
    is_locked = EXCLUDED.is_locked,
    last_attempt_at = EXCLUDED.last_attempt_at,
    updated_at = EXCLUDED.updated_at`,
		rec.AccountID, rec.TagID, rec.Hash, rec.Salt, rec.Attempts, rec.Locked, rec.LastAttemptAt, rec.UpdatedAt)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.AccountID, &rec.TagID, &rec.Hash, &rec.Salt, &rec.Attempts, &rec.Locked, &rec.LastAttemptAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

var _ Store = (*PGStore)(nil)
