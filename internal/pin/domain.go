package pin

import "time"

// Record is the stored PIN state for one account and tag pair.
type Record struct {
	AccountID     int64
	TagID         int64
	Hash          []byte
	Salt          []byte
	Attempts      int
	Locked        bool
	LastAttemptAt *time.Time
	UpdatedAt     time.Time
}

// Status is the administrative view of a record. The hash never leaves
// the vault.
type Status struct {
	HasPin        bool       `json:"has_pin"`
	Attempts      int        `json:"attempts"`
	Locked        bool       `json:"locked"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// ValidatePin accepts 4 to 6 ASCII digits.
func ValidatePin(raw string) error {
	if len(raw) < 4 || len(raw) > 6 {
		return ErrInvalidPin
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}
