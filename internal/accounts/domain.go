package accounts

import (
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

const (
	// AccountPrefix starts every retail account number.
	AccountPrefix  = "ACC"
	accountDigits  = 8
	passwordDigits = 8
	historyLimit   = 50
)

// Bulk actions.
const (
	BulkBlock          = "block"
	BulkUnblock        = "unblock"
	BulkResetPasswords = "reset_passwords"
)

// CreateInput registers a customer or staff account.
type CreateInput struct {
	Passport string `json:"passport" validate:"required,max=32"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"max=32"`
	Role     string `json:"role" validate:"omitempty,max=64"`
}

// Filter narrows the account listing. Query matches name, passport or
// account number.
type Filter struct {
	Query   string
	Page    int
	PerPage int
}

// Page is one page of accounts.
type Page struct {
	Accounts   []ledger.Account  `json:"accounts"`
	Pagination shared.Pagination `json:"pagination"`
}

// Details is an account with its recent transactions.
type Details struct {
	Account      ledger.Account       `json:"account"`
	Transactions []ledger.Transaction `json:"transactions"`
}

// Credentials carries a freshly generated password. It is shown once.
type Credentials struct {
	AccountID     int64  `json:"account_id"`
	AccountNumber string `json:"account_number"`
	Password      string `json:"password"`
}

// BulkResult lists which ids a bulk action changed.
type BulkResult struct {
	Updated   []int64       `json:"updated"`
	Skipped   []int64       `json:"skipped"`
	Passwords []Credentials `json:"passwords,omitempty"`
}
