package nfc

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/pin"
)

// Payment session states.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusExpired  = "expired"
	StatusNotFound = "not_found"
)

const maxTagUIDLength = 64

// Tag is a physical NFC identifier bound to one account.
type Tag struct {
	ID                 int64     `json:"id"`
	AccountID          int64     `json:"account_id"`
	TagUID             string    `json:"tag_uid"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	OwnerName          string    `json:"owner_name"`
	OwnerAccountNumber string    `json:"owner_account_number"`
	OwnerActive        bool      `json:"owner_active"`
}

// Owner is the account side of a tag or a session party.
type Owner struct {
	ID            int64
	AccountNumber string
	FullName      string
	IsActive      bool
}

// RegisterInput binds a new tag to an account.
type RegisterInput struct {
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
	TagUID    string `json:"tag_uid" validate:"required,max=64"`
	Pin       string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

// Registration is returned once a tag is registered.
type Registration struct {
	Tag     Tag    `json:"tag"`
	PayLink string `json:"pay_link"`
}

// TagStats aggregates the paid sessions of a tag.
type TagStats struct {
	Payments int64           `json:"payments"`
	Total    decimal.Decimal `json:"total"`
}

// TagDetails is the administrative view of a tag.
type TagDetails struct {
	Tag     Tag        `json:"tag"`
	Pin     pin.Status `json:"pin"`
	Stats   TagStats   `json:"stats"`
	PayLink string     `json:"pay_link"`
}

// Session pairs a buyer and a seller until the buyer confirms with a PIN.
type Session struct {
	ID              int64            `json:"id"`
	Token           string           `json:"session_id"`
	TagID           int64            `json:"tag_id"`
	BuyerAccountID  int64            `json:"buyer_account_id"`
	SellerAccountID int64            `json:"seller_account_id"`
	BuyerName       string           `json:"buyer_name,omitempty"`
	Amount          *decimal.Decimal `json:"amount"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// Expired reports whether a pending session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return s.Status == StatusExpired || (s.Status == StatusPending && !now.Before(s.ExpiresAt))
}

// SessionStatus is the public polling view of a session.
type SessionStatus struct {
	Status string           `json:"status"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// Payment is the outcome of a confirmed session.
type Payment struct {
	NewBalance  decimal.Decimal `json:"new_balance"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"`
	CompletedAt time.Time       `json:"completed_at"`
}

// NormalizeTagUID canonicalises scanned tag identifiers.
func NormalizeTagUID(uid string) string {
	return strings.ToUpper(strings.TrimSpace(uid))
}
