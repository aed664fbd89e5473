package business

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Notifier sends onboarding emails. Failures are logged only.
type Notifier interface {
	BusinessApproved(ctx context.Context, email, businessName, accountNumber, login, password string) error
	BusinessRejected(ctx context.Context, email, businessName, notes string) error
}

// AuditRecorder persists administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the business onboarding workflow.
type Service struct {
	store    Store
	hooks    ledger.Hooks
	notifier Notifier
	audit    AuditRecorder
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

// NewService constructs a Service. notifier and audit may be nil.
func NewService(store Store, hooks ledger.Hooks, notifier Notifier, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		hooks:    hooks,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithHashCost overrides the bcrypt cost of generated passwords.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

// Apply files a pending application for ownerID.
func (s *Service) Apply(ctx context.Context, ownerID int64, app Application) (Business, error) {
	if app.CharterCapital.LessThan(MinCharterCapital) {
		return Business{}, ErrCapitalTooLow
	}
	if err := ledger.ValidateAmount(app.CharterCapital); err != nil {
		return Business{}, err
	}
	b := Business{
		OwnerAccountID: ownerID,
		BusinessName:   strings.TrimSpace(app.BusinessName),
		LegalName:      strings.TrimSpace(app.LegalName),
		TaxID:          strings.TrimSpace(app.TaxID),
		CharterCapital: app.CharterCapital,
		Address:        strings.TrimSpace(app.Address),
		Email:          strings.TrimSpace(app.Email),
		Phone:          strings.TrimSpace(app.Phone),
		Status:         StatusPending,
		CreatedAt:      s.now(),
	}
	if b.LegalName == "" {
		b.LegalName = b.BusinessName
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		b, err = tx.Insert(ctx, b)
		return err
	})
	if err != nil {
		return Business{}, err
	}
	return b, nil
}

// List returns applications, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]Business, error) {
	return s.store.List(ctx, strings.TrimSpace(status))
}

// Get returns one application with its account.
func (s *Service) Get(ctx context.Context, id int64) (Details, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return Details{}, err
	}
	return s.withAccount(ctx, b)
}

// Mine returns the applications filed by ownerID.
func (s *Service) Mine(ctx context.Context, ownerID int64) ([]Details, error) {
	list, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]Details, 0, len(list))
	for _, b := range list {
		d, err := s.withAccount(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Approve opens the business account and its login account. The generated
// password is returned once and mailed to the business.
func (s *Service) Approve(ctx context.Context, adminID, id int64) (Approval, error) {
	password, err := shared.RandomAlphanumeric(passwordLength)
	if err != nil {
		return Approval{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return Approval{}, err
	}

	var approval Approval
	var posting ledger.Posting
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		b, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusPending {
			return ErrAlreadyProcessed
		}

		number, err := ledger.GenerateAccountNumber(ctx, accountPrefix, accountDigits,
			tx.AccountNumberExists, tx.Ledger().AccountNumberExists)
		if err != nil {
			return err
		}
		now := s.now()
		acc, err := tx.InsertAccount(ctx, Account{
			BusinessID:    b.ID,
			AccountNumber: number,
			AccountType:   AccountTypeCurrent,
			Balance:       b.CharterCapital,
			Currency:      CurrencyRUB,
			IsActive:      true,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}

		login := fmt.Sprintf("%s%d", accountPrefix, b.ID)
		loginAccount, err := ledger.CreateAccount(ctx, tx.Ledger(), ledger.NewAccount{
			Passport:      login,
			FullName:      b.BusinessName,
			AccountNumber: number,
			RoleName:      shared.RoleBusiness,
			PasswordHash:  string(hash),
			Email:         b.Email,
			Phone:         b.Phone,
		})
		if err != nil {
			return err
		}

		txn, err := tx.Ledger().InsertTransaction(ctx, ledger.Transaction{
			Reference:   uuid.New(),
			OccurredAt:  now,
			Type:        ledger.TypeCharterCapital,
			FromAccount: ledger.SystemAccount,
			ToAccount:   number,
			Amount:      b.CharterCapital,
			Status:      ledger.StatusSuccess,
			Description: "Charter capital of " + b.BusinessName,
			InitiatedBy: adminID,
		})
		if err != nil {
			return err
		}
		posting = ledger.Posting{Transaction: txn, ToBalance: acc.Balance}

		b.Status = StatusApproved
		b.ProcessedBy = &adminID
		b.ProcessedAt = &now
		if err := tx.UpdateStatus(ctx, b); err != nil {
			return err
		}
		approval = Approval{Business: b, Account: acc, LoginAccount: loginAccount, Login: login, Password: password}
		return nil
	})
	if err != nil {
		return Approval{}, err
	}

	b := approval.Business
	s.hooks.Committed(ctx, posting)
	s.record(ctx, shared.AuditLog{
		ActorID:  adminID,
		Action:   shared.AuditBusinessApproved,
		Entity:   "business",
		EntityID: strconv.FormatInt(b.ID, 10),
		Meta:     map[string]any{"account_number": approval.Account.AccountNumber, "login_account_id": approval.LoginAccount.ID},
	})
	if s.notifier != nil {
		if err := s.notifier.BusinessApproved(ctx, b.Email, b.BusinessName, approval.Account.AccountNumber, approval.Login, password); err != nil {
			s.logger.Warn("enqueue approval email", slog.Int64("business_id", b.ID), slog.Any("error", err))
		}
	}
	return approval, nil
}

// Reject closes a pending application with a reason.
func (s *Service) Reject(ctx context.Context, adminID, id int64, notes string) (Business, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return Business{}, ErrNotesRequired
	}
	var b Business
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		b, err = tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusPending {
			return ErrAlreadyProcessed
		}
		now := s.now()
		b.Status = StatusRejected
		b.AdminNotes = notes
		b.ProcessedBy = &adminID
		b.ProcessedAt = &now
		return tx.UpdateStatus(ctx, b)
	})
	if err != nil {
		return Business{}, err
	}

	s.record(ctx, shared.AuditLog{
		ActorID:  adminID,
		Action:   shared.AuditBusinessRejected,
		Entity:   "business",
		EntityID: strconv.FormatInt(b.ID, 10),
		Meta:     map[string]any{"notes": notes},
	})
	if s.notifier != nil {
		if err := s.notifier.BusinessRejected(ctx, b.Email, b.BusinessName, notes); err != nil {
			s.logger.Warn("enqueue rejection email", slog.Int64("business_id", b.ID), slog.Any("error", err))
		}
	}
	return b, nil
}

func (s *Service) withAccount(ctx context.Context, b Business) (Details, error) {
	d := Details{Business: b}
	if b.Status != StatusApproved {
		return d, nil
	}
	acc, err := s.store.AccountByBusiness(ctx, b.ID)
	if err != nil {
		return Details{}, err
	}
	d.Account = &acc
	return d, nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Error("business audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}
