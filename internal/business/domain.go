package business

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
)

// Application states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Business account defaults.
const (
	AccountTypeCurrent = "current"
	CurrencyRUB        = "RUB"
	accountPrefix      = "BUS"
	accountDigits      = 6
	passwordLength     = 10
)

// MinCharterCapital is the smallest charter capital accepted.
var MinCharterCapital = decimal.NewFromInt(10000)

// Business is an onboarding application and, once approved, the company.
type Business struct {
	ID             int64           `json:"id"`
	OwnerAccountID int64           `json:"owner_account_id"`
	BusinessName   string          `json:"business_name"`
	LegalName      string          `json:"legal_name"`
	TaxID          string          `json:"tax_id"`
	CharterCapital decimal.Decimal `json:"charter_capital"`
	Address        string          `json:"address"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Status         string          `json:"status"`
	AdminNotes     string          `json:"admin_notes,omitempty"`
	ProcessedBy    *int64          `json:"processed_by,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Account is the sub-ledger of an approved business. Credit limit and
// overdraft are recorded but not enforced.
type Account struct {
	ID               int64           `json:"id"`
	BusinessID       int64           `json:"business_id"`
	AccountNumber    string          `json:"account_number"`
	AccountType      string          `json:"account_type"`
	Balance          decimal.Decimal `json:"balance"`
	Currency         string          `json:"currency"`
	IsActive         bool            `json:"is_active"`
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	OverdraftAllowed bool            `json:"overdraft_allowed"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Application is the payload submitted by a customer.
type Application struct {
	BusinessName   string          `json:"business_name" validate:"required,max=200"`
	LegalName      string          `json:"legal_name" validate:"max=200"`
	TaxID          string          `json:"tax_id" validate:"required,max=32"`
	CharterCapital decimal.Decimal `json:"charter_capital"`
	Address        string          `json:"address" validate:"max=500"`
	Email          string          `json:"email" validate:"required,email"`
	Phone          string          `json:"phone" validate:"max=32"`
}

// Details pairs an application with its account, when approved.
type Details struct {
	Business Business `json:"business"`
	Account  *Account `json:"account,omitempty"`
}

// Approval is returned once to the approving admin. The password is not
// stored anywhere in clear text.
type Approval struct {
	Business     Business       `json:"business"`
	Account      Account        `json:"account"`
	LoginAccount ledger.Account `json:"login_account"`
	Login        string         `json:"login"`
	Password     string         `json:"password"`
}
