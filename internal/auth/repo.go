package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByPassport(ctx context.Context, passport string) (Credentials, error)
	FindByID(ctx context.Context, id int64) (Credentials, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	CreateSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const credentialsQuery = `SELECT a.id, a.passport, a.full_name, a.account_number, r.name, a.is_active, a.password_hash
FROM accounts a
JOIN roles r ON r.id = a.role_id
WHERE `

// FindByPassport fetches an account by passport.
func (r *PGRepository) FindByPassport(ctx context.Context, passport string) (Credentials, error) {
	return scanCredentials(r.pool.QueryRow(ctx, credentialsQuery+`a.passport = $1`, strings.TrimSpace(passport)))
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Credentials, error) {
	return scanCredentials(r.pool.QueryRow(ctx, credentialsQuery+`a.id = $1`, id))
}

// UpdatePassword stores a new bcrypt hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO auth_sessions (id, account_id, created_at, expires_at, ip, user_agent)
VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`, id, accountID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	return err
}

func scanCredentials(row pgx.Row) (Credentials, error) {
	var c Credentials
	err := row.Scan(&c.AccountID, &c.Passport, &c.FullName, &c.AccountNumber, &c.RoleName, &c.IsActive, &c.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credentials{}, shared.ErrNotFound
	}
	return c, err
}

var _ Repository = (*PGRepository)(nil)
