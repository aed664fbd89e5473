package business

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the application does not exist.
	ErrNotFound = fmt.Errorf("%w: business application not found", httpx.ErrNotFound)
	// ErrAccountNotFound indicates the business account does not exist.
	ErrAccountNotFound = fmt.Errorf("%w: business account not found", httpx.ErrNotFound)
	// ErrAlreadyProcessed indicates the application left the pending state.
	ErrAlreadyProcessed = fmt.Errorf("%w: business application already processed", httpx.ErrInvalidState)
	// ErrTaxIDExists indicates another application uses the same tax id.
	ErrTaxIDExists = fmt.Errorf("%w: tax id already registered", httpx.ErrDuplicate)
	// ErrCapitalTooLow indicates charter capital below MinCharterCapital.
	ErrCapitalTooLow = fmt.Errorf("%w: charter capital must be at least 10000", httpx.ErrValidation)
	// ErrNotesRequired indicates a rejection without a reason.
	ErrNotesRequired = fmt.Errorf("%w: rejection notes are required", httpx.ErrValidation)
)
