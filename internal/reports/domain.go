package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

const (
	// MaxRows caps every transaction listing.
	MaxRows             = 100
	recentRegistrations = 20
)

// ErrInvalidRange is returned when a date or amount window is inverted.
var ErrInvalidRange = fmt.Errorf("%w: range start is after its end", httpx.ErrValidation)

// SystemStats summarises today's activity.
type SystemStats struct {
	TodayTransactions int64           `json:"today_transactions"`
	AverageBalance    decimal.Decimal `json:"avg_balance"`
	TodayTurnover     decimal.Decimal `json:"total_turnover"`
	ActiveToday       int64           `json:"active_today"`
	NewToday          int64           `json:"new_today"`
}

// SuperStats is the super admin overview.
type SuperStats struct {
	TotalUsers        int64           `json:"total_users"`
	PendingSessions   int64           `json:"active_sessions"`
	TodayTransactions int64           `json:"today_transactions"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
}

// TransactionFilter narrows a transaction listing. Zero values are ignored.
// To is exclusive.
type TransactionFilter struct {
	Account   string
	From      time.Time
	To        time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Limit     int
}

// Validate rejects inverted windows.
func (f TransactionFilter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return ErrInvalidRange
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return ErrInvalidRange
	}
	return nil
}

// TransactionRow is a ledger entry with the names of both parties.
type TransactionRow struct {
	ledger.Transaction
	FromName string `json:"from_name,omitempty"`
	ToName   string `json:"to_name,omitempty"`
}

// AnalysisSummary aggregates the rows returned by an analysis.
type AnalysisSummary struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total_amount"`
	Average decimal.Decimal `json:"average_amount"`
}

// Analysis is the result of a transaction analysis.
type Analysis struct {
	Summary      AnalysisSummary  `json:"summary"`
	Transactions []TransactionRow `json:"transactions"`
}

// Registration is a recently created customer account.
type Registration struct {
	Passport  string          `json:"passport"`
	FullName  string          `json:"full_name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
