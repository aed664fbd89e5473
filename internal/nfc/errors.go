package nfc

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrTagNotFound indicates an unknown tag or a pay link that does not verify.
	ErrTagNotFound = fmt.Errorf("%w: nfc tag not found", httpx.ErrNotFound)
	// ErrTagInactive indicates a deactivated tag.
	ErrTagInactive = fmt.Errorf("%w: nfc tag is deactivated", httpx.ErrInvalidState)
	// ErrTagExists indicates the tag uid is already registered.
	ErrTagExists = fmt.Errorf("%w: nfc tag already registered", httpx.ErrDuplicate)
	// ErrInvalidTagUID indicates an empty or oversized tag uid.
	ErrInvalidTagUID = fmt.Errorf("%w: tag uid must be 1 to 64 characters", httpx.ErrValidation)
	// ErrOwnerNotFound indicates the account a tag is bound to does not exist.
	ErrOwnerNotFound = fmt.Errorf("%w: tag owner account not found", httpx.ErrNotFound)
	// ErrOwnerInactive indicates the tag owner account is blocked.
	ErrOwnerInactive = fmt.Errorf("%w: tag owner account is blocked", httpx.ErrInvalidState)

	// ErrSessionNotFound indicates an unknown session token.
	ErrSessionNotFound = fmt.Errorf("%w: payment session not found", httpx.ErrNotFound)
	// ErrSessionExpired indicates a session past its expiry.
	ErrSessionExpired = fmt.Errorf("%w: payment session expired", httpx.ErrInvalidState)
	// ErrSessionPaid indicates the session was already paid.
	ErrSessionPaid = fmt.Errorf("%w: payment session already paid", httpx.ErrInvalidState)
	// ErrAmountNotSet indicates confirmation before the seller set an amount.
	ErrAmountNotSet = fmt.Errorf("%w: payment amount not set", httpx.ErrInvalidState)
	// ErrAmountChanged indicates the amount moved between PIN entry and payment.
	ErrAmountChanged = fmt.Errorf("%w: payment amount changed during confirmation", httpx.ErrInvalidState)
	// ErrNotBusiness indicates the seller does not hold the business role.
	ErrNotBusiness = fmt.Errorf("%w: only business accounts accept nfc payments", httpx.ErrForbidden)
	// ErrNotSeller indicates a session touched by someone other than its seller.
	ErrNotSeller = fmt.Errorf("%w: payment session belongs to another seller", httpx.ErrForbidden)
	// ErrSelfPayment indicates the seller scanned their own tag.
	ErrSelfPayment = fmt.Errorf("%w: buyer and seller must differ", httpx.ErrValidation)
)
