package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrNotFound indicates that the account behind a session no longer exists.
	ErrNotFound = fmt.Errorf("%w: rbac: account not found", httpx.ErrUnauthorized)
	// ErrInactive indicates the account has been blocked.
	ErrInactive = fmt.Errorf("%w: rbac: account blocked", httpx.ErrUnauthorized)
)

// Record is the persisted view a Principal is built from.
type Record struct {
	Identity
	Permissions []string
	IsActive    bool
}

// Store loads principal records.
type Store interface {
	LoadRecord(ctx context.Context, accountID int64) (Record, error)
}

// Service resolves principals for authenticated sessions.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Principal loads the principal for accountID.
func (s *Service) Principal(ctx context.Context, accountID int64) (Principal, error) {
	rec, err := s.store.LoadRecord(ctx, accountID)
	if err != nil {
		return Principal{}, err
	}
	if !rec.IsActive {
		return Principal{}, ErrInactive
	}
	return NewPrincipal(rec.Identity, rec.Permissions...), nil
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// LoadRecord joins the account with its role.
func (s *PGStore) LoadRecord(ctx context.Context, accountID int64) (Record, error) {
	const query = `SELECT a.id, a.passport, a.full_name, a.account_number, a.is_active, r.name, r.level, r.permissions
FROM accounts a
JOIN roles r ON r.id = a.role_id
WHERE a.id = $1`
	var rec Record
	err := s.pool.QueryRow(ctx, query, accountID).Scan(
		&rec.AccountID, &rec.Passport, &rec.FullName, &rec.AccountNumber, &rec.IsActive,
		&rec.RoleName, &rec.RoleLevel, &rec.Permissions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

var _ Store = (*PGStore)(nil)
