package withdrawals

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Notifier mails the business about the decision. Failures are logged only.
type Notifier interface {
	WithdrawalProcessed(ctx context.Context, email, businessName string, amount decimal.Decimal, approved bool, notes string) error
}

// AuditRecorder persists administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the withdrawal request workflow.
type Service struct {
	store    Store
	hooks    ledger.Hooks
	notifier Notifier
	audit    AuditRecorder
	logger   *slog.Logger
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
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create files a pending request. The balance is checked now and again on
// approval.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in Input) (Request, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return Request{}, err
	}
	var req Request
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		target, err := tx.LockTarget(ctx, in.BusinessAccountID)
		if err != nil {
			return err
		}
		if target.Business.OwnerAccountID != actor.AccountID && target.Account.AccountNumber != actor.AccountNumber {
			return ErrNotOwner
		}
		if target.Business.Status != business.StatusApproved {
			return ErrBusinessNotApproved
		}
		if !target.Account.IsActive {
			return ErrAccountInactive
		}
		if target.Account.Balance.LessThan(in.Amount) {
			return ErrInsufficientFunds
		}
		req, err = tx.Insert(ctx, Request{
			BusinessAccountID: target.Account.ID,
			AccountNumber:     target.Account.AccountNumber,
			BusinessName:      target.Business.BusinessName,
			RequestedBy:       actor.AccountID,
			Amount:            in.Amount,
			Purpose:           strings.TrimSpace(in.Purpose),
			RecipientName:     strings.TrimSpace(in.RecipientName),
			RecipientAccount:  strings.TrimSpace(in.RecipientAccount),
			RecipientBank:     strings.TrimSpace(in.RecipientBank),
			Status:            StatusPending,
			CreatedAt:         s.now(),
		})
		return err
	})
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// List returns requests, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]Request, error) {
	return s.store.List(ctx, strings.TrimSpace(status))
}

// Mine returns the requests visible to accountID.
func (s *Service) Mine(ctx context.Context, accountID int64) ([]Request, error) {
	return s.store.ListForAccount(ctx, accountID)
}

// Process approves or rejects a pending request. An approval the balance
// no longer covers fails with ErrInsufficientFunds and leaves the request
// pending.
func (s *Service) Process(ctx context.Context, adminID, id int64, action, notes string) (Outcome, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != ActionApprove && action != ActionReject {
		return Outcome{}, ErrInvalidAction
	}
	notes = strings.TrimSpace(notes)

	var out Outcome
	var target Target
	var posting *ledger.Posting
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		req, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrAlreadyProcessed
		}
		target, err = tx.LockTarget(ctx, req.BusinessAccountID)
		if err != nil {
			return err
		}
		now := s.now()
		out.NewBalance = target.Account.Balance

		if action == ActionApprove {
			if target.Account.Balance.LessThan(req.Amount) {
				return ErrInsufficientFunds
			}
			out.NewBalance = target.Account.Balance.Sub(req.Amount)
			if err := tx.UpdateAccountBalance(ctx, target.Account.ID, out.NewBalance); err != nil {
				return err
			}
			description := "Withdrawal: " + req.Purpose
			if req.RecipientName != "" {
				description += " to " + req.RecipientName
			}
			txn, err := tx.Ledger().InsertTransaction(ctx, ledger.Transaction{
				Reference:   uuid.New(),
				OccurredAt:  now,
				Type:        ledger.TypeWithdrawal,
				FromAccount: target.Account.AccountNumber,
				ToAccount:   ledger.BankAccount,
				Amount:      req.Amount,
				Status:      ledger.StatusSuccess,
				Description: description,
				InitiatedBy: adminID,
			})
			if err != nil {
				return err
			}
			posting = &ledger.Posting{Transaction: txn, FromBalance: out.NewBalance}
			req.Status = StatusApproved
		} else {
			req.Status = StatusRejected
		}

		req.AdminNotes = notes
		req.ProcessedBy = &adminID
		req.ProcessedAt = &now
		if err := tx.Update(ctx, req); err != nil {
			return err
		}
		out.Request = req
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	auditAction := shared.AuditWithdrawalRejected
	if posting != nil {
		auditAction = shared.AuditWithdrawalApproved
		s.hooks.Committed(ctx, *posting)
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  adminID,
		Action:   auditAction,
		Entity:   "withdrawal_request",
		EntityID: strconv.FormatInt(out.Request.ID, 10),
		Meta:     map[string]any{"amount": out.Request.Amount.String(), "account_number": target.Account.AccountNumber},
	})
	if s.notifier != nil {
		err := s.notifier.WithdrawalProcessed(ctx, target.Business.Email, target.Business.BusinessName,
			out.Request.Amount, posting != nil, notes)
		if err != nil {
			s.logger.Warn("enqueue withdrawal email", slog.Int64("request_id", out.Request.ID), slog.Any("error", err))
		}
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Error("withdrawal audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}
