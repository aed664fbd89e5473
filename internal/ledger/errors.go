package ledger

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrAccountNotFound indicates a missing source or destination account.
	ErrAccountNotFound = fmt.Errorf("%w: account does not exist", httpx.ErrNotFound)
	// ErrAccountInactive indicates a blocked account took part in a movement.
	ErrAccountInactive = fmt.Errorf("%w: account is blocked", httpx.ErrInvalidState)
	// ErrInsufficientFunds indicates the source balance does not cover the amount.
	ErrInsufficientFunds = fmt.Errorf("ledger: %w", httpx.ErrInsufficientFunds)
	// ErrInvalidAmount indicates a non-positive amount, one with sub-kopeck
	// precision, or one too large to store.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive, below 10^16, with at most two decimal places", httpx.ErrValidation)
	// ErrBalanceLimit indicates a credit that would push a balance past MaxAmount.
	ErrBalanceLimit = fmt.Errorf("%w: resulting balance exceeds the account limit", httpx.ErrValidation)
	// ErrSameAccount indicates a movement whose source and destination coincide.
	ErrSameAccount = fmt.Errorf("%w: source and destination accounts must differ", httpx.ErrValidation)
	// ErrAccountExists indicates a passport or account number collision.
	ErrAccountExists = fmt.Errorf("%w: passport or account number already registered", httpx.ErrDuplicate)
	// ErrInvalidAccount indicates an incomplete account definition.
	ErrInvalidAccount = fmt.Errorf("%w: passport, full name and account number are required", httpx.ErrValidation)
)
