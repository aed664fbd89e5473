package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

const accountNumberAttempts = 20

// MaxAmount is the first value a NUMERIC(18, 2) column cannot hold. Amounts
// and resulting balances must stay below it.
var MaxAmount = decimal.New(1, 16)

// ValidateAmount rejects non-positive amounts, amounts finer than 0.01 and
// amounts at or above MaxAmount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) || amount.GreaterThanOrEqual(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Post executes a movement inside tx. It is the only code path that mutates
// account balances. Any error leaves the caller's transaction to roll back.
func Post(ctx context.Context, tx TxStore, m Movement) (Posting, error) {
	if err := ValidateAmount(m.Amount); err != nil {
		return Posting{}, err
	}
	m.From = NormalizeNumber(m.From)
	m.To = NormalizeNumber(m.To)
	if m.From == "" || m.To == "" {
		return Posting{}, ErrAccountNotFound
	}
	if m.From == m.To {
		return Posting{}, ErrSameAccount
	}
	if IsExternal(m.From) && IsExternal(m.To) {
		return Posting{}, fmt.Errorf("%w: movement between pseudo-accounts", ErrInvalidAccount)
	}

	numbers := make([]string, 0, 2)
	for _, number := range []string{m.From, m.To} {
		if !IsExternal(number) {
			numbers = append(numbers, number)
		}
	}
	locked, err := tx.LockAccounts(ctx, numbers)
	if err != nil {
		return Posting{}, err
	}
	byNumber := make(map[string]Account, len(locked))
	for _, acc := range locked {
		byNumber[acc.AccountNumber] = acc
	}
	for _, number := range numbers {
		acc, ok := byNumber[number]
		if !ok {
			return Posting{}, ErrAccountNotFound
		}
		if !acc.IsActive {
			return Posting{}, ErrAccountInactive
		}
	}

	var posting Posting
	if from, ok := byNumber[m.From]; ok {
		if from.Balance.LessThan(m.Amount) {
			return Posting{}, ErrInsufficientFunds
		}
		posting.FromBalance = from.Balance.Sub(m.Amount)
		if err := tx.UpdateBalance(ctx, from.ID, posting.FromBalance); err != nil {
			return Posting{}, err
		}
	}
	if to, ok := byNumber[m.To]; ok {
		posting.ToBalance = to.Balance.Add(m.Amount)
		if posting.ToBalance.GreaterThanOrEqual(MaxAmount) {
			return Posting{}, ErrBalanceLimit
		}
		if err := tx.UpdateBalance(ctx, to.ID, posting.ToBalance); err != nil {
			return Posting{}, err
		}
	}

	txn, err := tx.InsertTransaction(ctx, Transaction{
		Reference:   uuid.New(),
		OccurredAt:  time.Now().UTC(),
		Type:        m.Type,
		FromAccount: m.From,
		ToAccount:   m.To,
		Amount:      m.Amount,
		Status:      StatusSuccess,
		Description: strings.TrimSpace(m.Description),
		InitiatedBy: m.InitiatedBy,
	})
	if err != nil {
		return Posting{}, err
	}
	posting.Transaction = txn
	return posting, nil
}

// CreateAccount is the account creation primitive shared by registration
// and business onboarding.
func CreateAccount(ctx context.Context, tx TxStore, input NewAccount) (Account, error) {
	input.Passport = strings.TrimSpace(input.Passport)
	input.FullName = strings.TrimSpace(input.FullName)
	input.AccountNumber = NormalizeNumber(input.AccountNumber)
	input.Email = strings.TrimSpace(input.Email)
	if input.Passport == "" || input.FullName == "" || input.AccountNumber == "" || input.PasswordHash == "" {
		return Account{}, ErrInvalidAccount
	}
	if IsExternal(input.AccountNumber) {
		return Account{}, ErrAccountExists
	}
	if input.Balance.IsNegative() {
		return Account{}, ErrInvalidAmount
	}
	if input.RoleName == "" {
		input.RoleName = shared.RoleUser
	}
	return tx.InsertAccount(ctx, input)
}

// NumberTaken reports whether an account number is already in use.
type NumberTaken func(ctx context.Context, number string) (bool, error)

// GenerateAccountNumber draws prefix followed by random digits until a
// number unused by every checker is found.
func GenerateAccountNumber(ctx context.Context, prefix string, digits int, checks ...NumberTaken) (string, error) {
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		suffix, err := shared.RandomDigits(digits)
		if err != nil {
			return "", err
		}
		candidate := prefix + suffix
		free := true
		for _, taken := range checks {
			used, err := taken(ctx, candidate)
			if err != nil {
				return "", err
			}
			if used {
				free = false
				break
			}
		}
		if free {
			return candidate, nil
		}
	}
	return "", errors.New("ledger: could not allocate a free account number")
}
