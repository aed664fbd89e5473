package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types recorded in the ledger.
const (
	TypeTransfer       = "Transfer"
	TypeNFCPayment     = "NFC Payment"
	TypeDeposit        = "Deposit"
	TypeWithdrawal     = "Withdrawal"
	TypeCharterCapital = "Charter Capital"
)

// StatusSuccess marks a committed movement.
const StatusSuccess = "success"

// Pseudo-accounts standing for money entering or leaving the bank.
const (
	SystemAccount = "SYSTEM"
	BankAccount   = "BANK"
)

// Account is a customer ledger account.
type Account struct {
	ID            int64           `json:"id"`
	Passport      string          `json:"passport"`
	FullName      string          `json:"full_name"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"is_active"`
	RoleID        int64           `json:"role_id"`
	RoleName      string          `json:"role"`
	Email         string          `json:"email,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          int64           `json:"id"`
	Reference   uuid.UUID       `json:"reference"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Type        string          `json:"type"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	InitiatedBy int64           `json:"initiated_by,omitempty"`
}

// NewAccount describes an account to create.
type NewAccount struct {
	Passport      string
	FullName      string
	AccountNumber string
	Balance       decimal.Decimal
	RoleName      string
	PasswordHash  string
	Email         string
	Phone         string
}

// Movement moves Amount from one account number to another. Either side may
// be a pseudo-account, in which case only the other side is touched.
type Movement struct {
	From        string
	To          string
	Amount      decimal.Decimal
	Type        string
	Description string
	InitiatedBy int64
}

// Posting is the outcome of a committed movement.
type Posting struct {
	Transaction Transaction
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// Receipt is returned to the party that initiated a movement.
type Receipt struct {
	NewBalance  decimal.Decimal `json:"new_balance"`
	Transaction Transaction     `json:"transaction"`
}

// Summary is the public view of an account used by lookups.
type Summary struct {
	AccountNumber string `json:"account_number"`
	FullName      string `json:"full_name"`
	IsActive      bool   `json:"is_active"`
}

// Dashboard is the self-service account overview.
type Dashboard struct {
	Account      Account       `json:"account"`
	Transactions []Transaction `json:"transactions"`
}

// IsExternal reports whether number is a pseudo-account.
func IsExternal(number string) bool {
	return number == SystemAccount || number == BankAccount
}

// NormalizeNumber canonicalises user supplied account numbers.
func NormalizeNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}
