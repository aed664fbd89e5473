package auth

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

// MinPasswordLength is the shortest password a customer may choose.
const MinPasswordLength = 6

var (
	// ErrAccountBlocked is returned when a blocked account logs in.
	ErrAccountBlocked = fmt.Errorf("%w: account is blocked, contact support", httpx.ErrForbidden)
	// ErrWrongPassword is returned when the current password does not match.
	ErrWrongPassword = fmt.Errorf("%w: current password is incorrect", httpx.ErrValidation)
	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = fmt.Errorf("%w: new passwords do not match", httpx.ErrValidation)
	// ErrPasswordTooShort is returned for passwords under MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", httpx.ErrValidation, MinPasswordLength)
)

// Credentials is the login view of an account.
type Credentials struct {
	AccountID     int64  `json:"id"`
	Passport      string `json:"passport"`
	FullName      string `json:"full_name"`
	AccountNumber string `json:"account_number"`
	RoleName      string `json:"role"`
	IsActive      bool   `json:"is_active"`
	PasswordHash  string `json:"-"`
}

// LoginInput carries passport credentials.
type LoginInput struct {
	Passport string `json:"passport" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// PasswordChange carries a password change request.
type PasswordChange struct {
	Current string `json:"current" validate:"required"`
	New     string `json:"new" validate:"required,max=128"`
	Confirm string `json:"confirm" validate:"required"`
}
