package nfc

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db"
)

const tagColumns = `t.id, t.account_id, t.tag_uid, t.is_active, t.created_at, a.full_name, a.account_number, a.is_active`

const sessionColumns = `id, token, tag_id, buyer_account_id, seller_account_id, amount, status, created_at, expires_at, completed_at`

const lockSessionSQL = `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE token = $1 FOR UPDATE`

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// WithTx runs fn inside a ReadCommitted transaction shared with the
// ledger and PIN stores.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{tx: tx, ledger: ledger.NewTxStore(tx), pins: pin.NewTxStore(tx)})
	})
}

// TagByID loads a tag with its owner.
func (s *PGStore) TagByID(ctx context.Context, id int64) (Tag, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tagColumns+`
FROM nfc_tags t JOIN accounts a ON a.id = t.account_id
WHERE t.id = $1`, id)
	return scanTag(row)
}

// ListTags lists tags newest first.
func (s *PGStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tagColumns+`
FROM nfc_tags t JOIN accounts a ON a.id = t.account_id
ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// TagStats sums the paid sessions of a tag.
func (s *PGStore) TagStats(ctx context.Context, tagID int64) (TagStats, error) {
	var stats TagStats
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0)
FROM payment_sessions WHERE tag_id = $1 AND status = 'paid'`, tagID).Scan(&stats.Payments, &stats.Total)
	return stats, err
}

// SessionByToken loads a session without locking it.
func (s *PGStore) SessionByToken(ctx context.Context, token string) (Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM payment_sessions WHERE token = $1`, token)
	return scanSession(row)
}

// ExpireSessions marks stale pending sessions expired.
func (s *PGStore) ExpireSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE payment_sessions SET status = 'expired'
WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgTxStore struct {
	tx     pgx.Tx
	ledger ledger.TxStore
	pins   pin.TxStore
}

func (s *pgTxStore) Ledger() ledger.TxStore { return s.ledger }

func (s *pgTxStore) Pins() pin.TxStore { return s.pins }

func (s *pgTxStore) Owner(ctx context.Context, accountID int64) (Owner, error) {
	var o Owner
	err := s.tx.QueryRow(ctx, `SELECT id, account_number, full_name, is_active FROM accounts WHERE id = $1`, accountID).
		Scan(&o.ID, &o.AccountNumber, &o.FullName, &o.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Owner{}, ErrOwnerNotFound
	}
	return o, err
}

func (s *pgTxStore) InsertTag(ctx context.Context, tag Tag) (Tag, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO nfc_tags (account_id, tag_uid, is_active, created_at)
VALUES ($1, $2, $3, $4) RETURNING id`, tag.AccountID, tag.TagUID, tag.IsActive, tag.CreatedAt).Scan(&tag.ID)
	if db.IsUniqueViolation(err, "nfc_tags_tag_uid_key") {
		return Tag{}, ErrTagExists
	}
	return tag, err
}

func (s *pgTxStore) SetTagActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.tx.Exec(ctx, `UPDATE nfc_tags SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (s *pgTxStore) InsertSession(ctx context.Context, sess Session) (Session, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO payment_sessions (token, tag_id, buyer_account_id, seller_account_id, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		sess.Token, sess.TagID, sess.BuyerAccountID, sess.SellerAccountID, sess.Status, sess.CreatedAt, sess.ExpiresAt).Scan(&sess.ID)
	return sess, err
}

func (s *pgTxStore) LockSession(ctx context.Context, token string) (Session, error) {
	row := s.tx.QueryRow(ctx, lockSessionSQL, token)
	return scanSession(row)
}

func (s *pgTxStore) UpdateSession(ctx context.Context, sess Session) error {
	_, err := s.tx.Exec(ctx, `UPDATE payment_sessions SET amount = $2, status = $3, completed_at = $4 WHERE id = $1`,
		sess.ID, sess.Amount, sess.Status, sess.CompletedAt)
	return err
}

func scanTag(row pgx.Row) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.AccountID, &t.TagUID, &t.IsActive, &t.CreatedAt, &t.OwnerName, &t.OwnerAccountNumber, &t.OwnerActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tag{}, ErrTagNotFound
	}
	return t, err
}

func scanSession(row pgx.Row) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.Token, &sess.TagID, &sess.BuyerAccountID, &sess.SellerAccountID,
		&sess.Amount, &sess.Status, &sess.CreatedAt, &sess.ExpiresAt, &sess.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return sess, err
}

var _ Store = (*PGStore)(nil)
