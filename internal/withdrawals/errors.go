package withdrawals

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the withdrawal request does not exist.
	ErrNotFound = fmt.Errorf("%w: withdrawal request not found", httpx.ErrNotFound)
	// ErrAlreadyProcessed indicates the request left the pending state.
	ErrAlreadyProcessed = fmt.Errorf("%w: withdrawal request already processed", httpx.ErrInvalidState)
	// ErrNotOwner indicates the business account belongs to someone else.
	ErrNotOwner = fmt.Errorf("%w: business account belongs to another customer", httpx.ErrForbidden)
	// ErrBusinessNotApproved indicates the account's business is not approved.
	ErrBusinessNotApproved = fmt.Errorf("%w: business is not approved", httpx.ErrInvalidState)
	// ErrAccountInactive indicates a deactivated business account.
	ErrAccountInactive = fmt.Errorf("%w: business account is inactive", httpx.ErrInvalidState)
	// ErrInsufficientFunds indicates the business balance does not cover the amount.
	ErrInsufficientFunds = fmt.Errorf("withdrawals: %w", httpx.ErrInsufficientFunds)
	// ErrInvalidAction indicates an action other than approve or reject.
	ErrInvalidAction = fmt.Errorf("%w: action must be approve or reject", httpx.ErrValidation)
)
