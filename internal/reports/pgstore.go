package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

func (s *PGStore) sum(ctx context.Context, sql string, args ...any) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&d)
	return d, err
}

// CountTransactions counts ledger entries since the given instant.
func (s *PGStore) CountTransactions(ctx context.Context, since time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM transactions WHERE occurred_at >= $1`, since)
}

// Turnover sums successful movements since the given instant.
func (s *PGStore) Turnover(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE occurred_at >= $1 AND status = $2`, since, ledger.StatusSuccess)
}

// ActiveAccounts counts distinct initiators since the given instant.
func (s *PGStore) ActiveAccounts(ctx context.Context, since time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT initiated_by) FROM transactions WHERE occurred_at >= $1`, since)
}

// NewAccounts counts accounts created since the given instant.
func (s *PGStore) NewAccounts(ctx context.Context, since time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM accounts WHERE created_at >= $1`, since)
}

// AverageBalance averages active account balances.
func (s *PGStore) AverageBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(AVG(balance), 0) FROM accounts WHERE is_active`)
}

// TotalBalance sums every account balance.
func (s *PGStore) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(balance), 0) FROM accounts`)
}

// TotalUsers counts accounts.
func (s *PGStore) TotalUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM accounts`)
}

// PendingSessions counts payment sessions still awaiting confirmation.
func (s *PGStore) PendingSessions(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM payment_sessions WHERE status = 'pending'`)
}

// Transactions lists entries matching filter, newest first.
func (s *PGStore) Transactions(ctx context.Context, filter TransactionFilter) ([]TransactionRow, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Account != "" {
		add("(t.from_account ILIKE '%%' || $%[1]d || '%%' OR t.to_account ILIKE '%%' || $%[1]d || '%%')", filter.Account)
	}
	if !filter.From.IsZero() {
		add("t.occurred_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("t.occurred_at < $%d", filter.To)
	}
	if filter.MinAmount != nil {
		add("t.amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("t.amount <= $%d", *filter.MaxAmount)
	}
	sql := `SELECT t.id, t.reference, t.occurred_at, t.type, t.from_account, t.to_account, t.amount, t.status,
       t.description, t.initiated_by, COALESCE(f.full_name, ''), COALESCE(d.full_name, '')
FROM transactions t
LEFT JOIN accounts f ON f.account_number = t.from_account
LEFT JOIN accounts d ON d.account_number = t.to_account`
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit)
	sql += fmt.Sprintf("\nORDER BY t.occurred_at DESC, t.id DESC\nLIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TransactionRow
	for rows.Next() {
		var (
			row         TransactionRow
			initiatedBy *int64
		)
		if err := rows.Scan(
			&row.ID, &row.Reference, &row.OccurredAt, &row.Type, &row.FromAccount, &row.ToAccount,
			&row.Amount, &row.Status, &row.Description, &initiatedBy, &row.FromName, &row.ToName,
		); err != nil {
			return nil, err
		}
		if initiatedBy != nil {
			row.InitiatedBy = *initiatedBy
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecentRegistrations lists the newest plain customer accounts.
func (s *PGStore) RecentRegistrations(ctx context.Context, limit int) ([]Registration, error) {
	rows, err := s.pool.Query(ctx, `SELECT a.passport, a.full_name, a.balance, a.created_at
FROM accounts a
JOIN roles r ON r.id = a.role_id
WHERE r.name = $2
ORDER BY a.created_at DESC, a.id DESC
LIMIT $1`, limit, shared.RoleUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.Passport, &reg.FullName, &reg.Balance, &reg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
