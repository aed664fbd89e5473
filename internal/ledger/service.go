package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultHistoryLimit = 20

// Service exposes the Transfer Engine.
type Service struct {
	store Store
	hooks Hooks
}

// NewService constructs a Service.
func NewService(store Store, hooks Hooks) *Service {
	return &Service{store: store, hooks: hooks}
}

// Invalidate drops cached report aggregates through the configured hooks.
func (s *Service) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	s.hooks.Invalidate(ctx)
}

// Hooks returns the after-commit hooks so other modules posting through
// Post can reuse them.
func (s *Service) Hooks() Hooks {
	return s.hooks
}

// TransferInput describes a customer initiated transfer.
type TransferInput struct {
	InitiatedBy int64
	From        string
	To          string
	Amount      decimal.Decimal
	Description string
}

// Transfer moves money between two customer accounts atomically and returns
// the new balance of the source account.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (Receipt, error) {
	from := NormalizeNumber(in.From)
	to := NormalizeNumber(in.To)
	if IsExternal(from) || IsExternal(to) {
		return Receipt{}, ErrAccountNotFound
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Transfer to " + to
	}

	var posting Posting
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		posting, err = Post(ctx, tx, Movement{
			From:        from,
			To:          to,
			Amount:      in.Amount,
			Type:        TypeTransfer,
			Description: description,
			InitiatedBy: in.InitiatedBy,
		})
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.hooks.Committed(ctx, posting)
	return Receipt{NewBalance: posting.FromBalance, Transaction: posting.Transaction}, nil
}

// Deposit credits an account from the system pseudo-account.
func (s *Service) Deposit(ctx context.Context, actorID int64, accountNumber string, amount decimal.Decimal, description string) (Receipt, error) {
	to := NormalizeNumber(accountNumber)
	if IsExternal(to) {
		return Receipt{}, ErrAccountNotFound
	}
	if strings.TrimSpace(description) == "" {
		description = "Deposit"
	}
	var posting Posting
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		posting, err = Post(ctx, tx, Movement{
			From:        SystemAccount,
			To:          to,
			Amount:      amount,
			Type:        TypeDeposit,
			Description: description,
			InitiatedBy: actorID,
		})
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.hooks.Committed(ctx, posting)
	return Receipt{NewBalance: posting.ToBalance, Transaction: posting.Transaction}, nil
}

// Dashboard returns the live account view with its recent history.
func (s *Service) Dashboard(ctx context.Context, accountID int64) (Dashboard, error) {
	acc, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return Dashboard{}, err
	}
	txns, err := s.store.RecentTransactions(ctx, acc.AccountNumber, defaultHistoryLimit)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Account: acc, Transactions: txns}, nil
}

// History lists the latest transactions touching accountNumber.
func (s *Service) History(ctx context.Context, accountNumber string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}
	return s.store.RecentTransactions(ctx, NormalizeNumber(accountNumber), limit)
}

// Lookup resolves an account number to its public summary.
func (s *Service) Lookup(ctx context.Context, accountNumber string) (Summary, error) {
	number := NormalizeNumber(accountNumber)
	if number == "" || IsExternal(number) {
		return Summary{}, ErrAccountNotFound
	}
	acc, err := s.store.AccountByNumber(ctx, number)
	if err != nil {
		return Summary{}, err
	}
	return Summary{AccountNumber: acc.AccountNumber, FullName: acc.FullName, IsActive: acc.IsActive}, nil
}
