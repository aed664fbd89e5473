package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// AuditRecorder persists administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements back-office account administration.
type Service struct {
	store    Store
	ledger   *ledger.Service
	audit    AuditRecorder
	logger   *slog.Logger
	hashCost int
}

// NewService constructs a Service. audit may be nil.
func NewService(store Store, ledgerSvc *ledger.Service, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, ledger: ledgerSvc, audit: audit, logger: logger, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

// Create registers an account with a generated ACC number. Actors without
// manage_users may only register plain customers.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateInput) (ledger.Account, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = shared.RoleUser
	}
	if role == shared.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return ledger.Account{}, ErrSuperAdminOnly
	}
	if role != shared.RoleUser && !actor.Has(shared.PermManageUsers) {
		return ledger.Account{}, ErrRoleNotAllowed
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return ledger.Account{}, err
	}

	var acc ledger.Account
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		number, err := ledger.GenerateAccountNumber(ctx, AccountPrefix, accountDigits, tx.Ledger().AccountNumberExists)
		if err != nil {
			return err
		}
		acc, err = ledger.CreateAccount(ctx, tx.Ledger(), ledger.NewAccount{
			Passport:      in.Passport,
			FullName:      in.FullName,
			AccountNumber: number,
			Balance:       decimal.Zero,
			RoleName:      role,
			PasswordHash:  string(hash),
			Email:         in.Email,
			Phone:         in.Phone,
		})
		if errors.Is(err, ledger.ErrInvalidAccount) && role != shared.RoleUser {
			return ErrRoleNotFound
		}
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.ledger.Invalidate(ctx)
	s.record(ctx, actor.AccountID, shared.AuditAccountCreated, acc, map[string]any{"role": role})
	return acc, nil
}

// List returns a page of accounts matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	p := shared.NewPagination(f.Page, f.PerPage, 0)
	list, total, err := s.store.Search(ctx, strings.TrimSpace(f.Query), p.PerPage, p.Offset())
	if err != nil {
		return Page{}, err
	}
	if list == nil {
		list = []ledger.Account{}
	}
	return Page{Accounts: list, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// Get returns an account with its recent transactions.
func (s *Service) Get(ctx context.Context, id int64) (Details, error) {
	acc, err := s.store.AccountByID(ctx, id)
	if err != nil {
		return Details{}, err
	}
	txns, err := s.store.Transactions(ctx, acc.AccountNumber, historyLimit)
	if err != nil {
		return Details{}, err
	}
	return Details{Account: acc, Transactions: txns}, nil
}

// ToggleActive blocks an active account or unblocks a blocked one.
func (s *Service) ToggleActive(ctx context.Context, actor rbac.Principal, id int64) (ledger.Account, error) {
	var acc ledger.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		acc, err = tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := guard(actor, acc); err != nil {
			return err
		}
		if acc.IsActive && acc.ID == actor.AccountID {
			return ErrSelfAction
		}
		acc.IsActive = !acc.IsActive
		return tx.SetActive(ctx, acc.ID, acc.IsActive)
	})
	if err != nil {
		return ledger.Account{}, err
	}
	action := shared.AuditAccountUnblocked
	if !acc.IsActive {
		action = shared.AuditAccountBlocked
	}
	s.record(ctx, actor.AccountID, action, acc, nil)
	return acc, nil
}

// ChangeRole moves an account to another role.
func (s *Service) ChangeRole(ctx context.Context, actor rbac.Principal, id int64, role string) (ledger.Account, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return ledger.Account{}, ErrRoleNotFound
	}
	if role == shared.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return ledger.Account{}, ErrSuperAdminOnly
	}
	var (
		before string
		acc    ledger.Account
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		current, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := guard(actor, current); err != nil {
			return err
		}
		if current.ID == actor.AccountID {
			return ErrSelfAction
		}
		before = current.RoleName
		acc, err = tx.SetRole(ctx, id, role)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.record(ctx, actor.AccountID, shared.AuditRoleChanged, acc, map[string]any{"from": before, "to": role})
	return acc, nil
}

// ResetPassword replaces the password with eight random digits and returns
// them once.
func (s *Service) ResetPassword(ctx context.Context, actor rbac.Principal, id int64) (Credentials, error) {
	var creds Credentials
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		acc, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := guard(actor, acc); err != nil {
			return err
		}
		creds, err = s.resetPassword(ctx, tx, acc)
		return err
	})
	if err != nil {
		return Credentials{}, err
	}
	s.record(ctx, actor.AccountID, shared.AuditPasswordReset, ledger.Account{ID: creds.AccountID, AccountNumber: creds.AccountNumber}, nil)
	return creds, nil
}

// Bulk applies action to every id in one transaction. Ids that are missing
// or protected are skipped rather than failing the batch.
func (s *Service) Bulk(ctx context.Context, actor rbac.Principal, action string, ids []int64) (BulkResult, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != BulkBlock && action != BulkUnblock && action != BulkResetPasswords {
		return BulkResult{}, ErrInvalidBulkAction
	}
	result := BulkResult{Updated: []int64{}, Skipped: []int64{}}
	var touched []ledger.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			acc, err := tx.Lock(ctx, id)
			if errors.Is(err, ErrNotFound) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			if err != nil {
				return err
			}
			if guard(actor, acc) != nil || (action == BulkBlock && acc.ID == actor.AccountID) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			switch action {
			case BulkBlock, BulkUnblock:
				acc.IsActive = action == BulkUnblock
				if err := tx.SetActive(ctx, acc.ID, acc.IsActive); err != nil {
					return err
				}
			case BulkResetPasswords:
				creds, err := s.resetPassword(ctx, tx, acc)
				if err != nil {
					return err
				}
				result.Passwords = append(result.Passwords, creds)
			}
			result.Updated = append(result.Updated, acc.ID)
			touched = append(touched, acc)
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	auditAction := map[string]string{
		BulkBlock:          shared.AuditAccountBlocked,
		BulkUnblock:        shared.AuditAccountUnblocked,
		BulkResetPasswords: shared.AuditPasswordReset,
	}[action]
	for _, acc := range touched {
		s.record(ctx, actor.AccountID, auditAction, acc, map[string]any{"bulk": true})
	}
	return result, nil
}

// Deposit credits an account from SYSTEM.
func (s *Service) Deposit(ctx context.Context, actor rbac.Principal, id int64, amount decimal.Decimal, description string) (ledger.Receipt, error) {
	acc, err := s.store.AccountByID(ctx, id)
	if err != nil {
		return ledger.Receipt{}, err
	}
	receipt, err := s.ledger.Deposit(ctx, actor.AccountID, acc.AccountNumber, amount, description)
	if err != nil {
		return ledger.Receipt{}, err
	}
	s.record(ctx, actor.AccountID, shared.AuditDeposit, acc, map[string]any{
		"amount":    amount.String(),
		"reference": receipt.Transaction.Reference.String(),
	})
	return receipt, nil
}

func (s *Service) resetPassword(ctx context.Context, tx TxStore, acc ledger.Account) (Credentials, error) {
	password, err := shared.RandomDigits(passwordDigits)
	if err != nil {
		return Credentials{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return Credentials{}, err
	}
	if err := tx.SetPasswordHash(ctx, acc.ID, string(hash)); err != nil {
		return Credentials{}, err
	}
	return Credentials{AccountID: acc.ID, AccountNumber: acc.AccountNumber, Password: password}, nil
}

// guard keeps super_admin accounts out of reach of lesser admins.
func guard(actor rbac.Principal, target ledger.Account) error {
	if target.RoleName == shared.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return ErrSuperAdminOnly
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, acc ledger.Account, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	if acc.AccountNumber != "" {
		meta["account_number"] = acc.AccountNumber
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(acc.ID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Error("account audit", slog.String("action", action), slog.Any("error", err))
	}
}
