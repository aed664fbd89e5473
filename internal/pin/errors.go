package pin

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrNotFound indicates no PIN is set for the account and tag pair.
	ErrNotFound = fmt.Errorf("%w: pin not set for this tag", httpx.ErrNotFound)
	// ErrPinMismatch indicates a wrong PIN.
	ErrPinMismatch = fmt.Errorf("%w: wrong pin", httpx.ErrUnauthorized)
	// ErrPinLocked indicates the record is locked after too many failures.
	ErrPinLocked = fmt.Errorf("%w: pin locked after too many wrong attempts", httpx.ErrInvalidState)
	// ErrInvalidPin indicates a PIN that is not 4 to 6 digits.
	ErrInvalidPin = fmt.Errorf("%w: pin must be 4 to 6 digits", httpx.ErrValidation)
)
