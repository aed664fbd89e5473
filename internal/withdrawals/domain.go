package withdrawals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
)

// Request states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Actions accepted by Process.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Request is a withdrawal from a business account.
type Request struct {
	ID                int64           `json:"id"`
	BusinessAccountID int64           `json:"business_account_id"`
	AccountNumber     string          `json:"account_number"`
	BusinessName      string          `json:"business_name"`
	RequestedBy       int64           `json:"requested_by"`
	Amount            decimal.Decimal `json:"amount"`
	Purpose           string          `json:"purpose"`
	RecipientName     string          `json:"recipient_name"`
	RecipientAccount  string          `json:"recipient_account"`
	RecipientBank     string          `json:"recipient_bank"`
	Status            string          `json:"status"`
	AdminNotes        string          `json:"admin_notes,omitempty"`
	ProcessedBy       *int64          `json:"processed_by,omitempty"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Input is the payload of a new withdrawal request.
type Input struct {
	BusinessAccountID int64           `json:"business_account_id" validate:"required,gt=0"`
	Amount            decimal.Decimal `json:"amount"`
	Purpose           string          `json:"purpose" validate:"required,max=500"`
	RecipientName     string          `json:"recipient_name" validate:"max=200"`
	RecipientAccount  string          `json:"recipient_account" validate:"max=64"`
	RecipientBank     string          `json:"recipient_bank" validate:"max=200"`
}

// Target is a business account with the business that owns it.
type Target struct {
	Account  business.Account
	Business business.Business
}

// Outcome is the result of processing a request.
type Outcome struct {
	Request    Request         `json:"request"`
	NewBalance decimal.Decimal `json:"new_balance"`
}
