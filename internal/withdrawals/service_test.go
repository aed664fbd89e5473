package withdrawals_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/business/businesstest"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
	"github.com/odyssey-erp/odyssey-bank/internal/withdrawals"
	"github.com/odyssey-erp/odyssey-bank/internal/withdrawals/withdrawalstest"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type notice struct {
	email    string
	approved bool
}

type notices struct{ sent []notice }

func (n *notices) WithdrawalProcessed(ctx context.Context, email, businessName string, amount decimal.Decimal, approved bool, notes string) error {
	n.sent = append(n.sent, notice{email: email, approved: approved})
	return nil
}

type fixture struct {
	svc      *withdrawals.Service
	store    *withdrawalstest.Store
	biz      *businesstest.Store
	ledger   *ledgertest.Store
	owner    rbac.Principal
	stranger rbac.Principal
	account  business.Account
	mail     *notices
}

func newFixture(balance string) *fixture {
	l := ledgertest.New()
	biz := businesstest.New(l)
	f := &fixture{ledger: l, biz: biz, store: withdrawalstest.New(biz), mail: &notices{}}

	b := biz.Seed(business.Business{OwnerAccountID: 10, BusinessName: "Coffee Ltd", TaxID: "1", Email: "cfo@coffee.test", Status: business.StatusApproved})
	f.account = biz.SeedAccount(business.Account{BusinessID: b.ID, AccountNumber: "BUS123456", Balance: dec(balance), IsActive: true, Currency: business.CurrencyRUB})
	f.owner = rbac.NewPrincipal(rbac.Identity{AccountID: 10, AccountNumber: "ACC00000010", RoleName: shared.RoleUser})
	f.stranger = rbac.NewPrincipal(rbac.Identity{AccountID: 11, AccountNumber: "ACC00000011", RoleName: shared.RoleUser})
	f.svc = withdrawals.NewService(f.store, ledger.Hooks{}, f.mail, nil, nil)
	return f
}

func (f *fixture) input(amount string) withdrawals.Input {
	return withdrawals.Input{BusinessAccountID: f.account.ID, Amount: dec(amount), Purpose: "payroll", RecipientName: "Staff"}
}

func (f *fixture) balance() decimal.Decimal {
	acc, _ := f.biz.Account(f.account.ID)
	return acc.Balance
}

func TestWithdrawalOfFullBalanceLeavesZero(t *testing.T) {
	f := newFixture("5000")
	ctx := context.Background()

	req, err := f.svc.Create(ctx, f.owner, f.input("5000"))
	require.NoError(t, err)
	require.Equal(t, withdrawals.StatusPending, req.Status)

	out, err := f.svc.Process(ctx, 1, req.ID, "approve", "")
	require.NoError(t, err)
	require.Equal(t, withdrawals.StatusApproved, out.Request.Status)
	require.True(t, out.NewBalance.IsZero())
	require.True(t, f.balance().IsZero())

	txns := f.ledger.Transactions()
	require.Len(t, txns, 1)
	require.Equal(t, ledger.TypeWithdrawal, txns[0].Type)
	require.Equal(t, "BUS123456", txns[0].FromAccount)
	require.Equal(t, ledger.BankAccount, txns[0].ToAccount)
	require.Equal(t, []notice{{email: "cfo@coffee.test", approved: true}}, f.mail.sent)

	_, err = f.svc.Process(ctx, 1, req.ID, "reject", "late")
	require.ErrorIs(t, err, withdrawals.ErrAlreadyProcessed)
}

func TestApprovalAboveBalanceStaysPending(t *testing.T) {
	f := newFixture("5000")
	ctx := context.Background()
	req, err := f.svc.Create(ctx, f.owner, f.input("4000"))
	require.NoError(t, err)

	require.NoError(t, f.biz.SetAccountBalance(f.account.ID, dec("3000")))
	_, err = f.svc.Process(ctx, 1, req.ID, "approve", "")
	require.ErrorIs(t, err, withdrawals.ErrInsufficientFunds)

	stored, _ := f.store.Request(req.ID)
	require.Equal(t, withdrawals.StatusPending, stored.Status)
	require.True(t, f.balance().Equal(dec("3000")))
	require.Empty(t, f.ledger.Transactions())
	require.Empty(t, f.mail.sent)
}

func TestCreateChecksOwnershipAndBalance(t *testing.T) {
	f := newFixture("100")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.stranger, f.input("10"))
	require.ErrorIs(t, err, withdrawals.ErrNotOwner)

	_, err = f.svc.Create(ctx, f.owner, f.input("100.01"))
	require.ErrorIs(t, err, withdrawals.ErrInsufficientFunds)

	_, err = f.svc.Create(ctx, f.owner, f.input("0"))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	login := rbac.NewPrincipal(rbac.Identity{AccountID: 12, AccountNumber: "BUS123456", RoleName: shared.RoleBusiness})
	_, err = f.svc.Create(ctx, login, f.input("100"))
	require.NoError(t, err)

	mine, err := f.svc.Mine(ctx, f.owner.AccountID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	mine, err = f.svc.Mine(ctx, f.stranger.AccountID)
	require.NoError(t, err)
	require.Empty(t, mine)
}

func TestRejectKeepsBalance(t *testing.T) {
	f := newFixture("100")
	ctx := context.Background()
	req, err := f.svc.Create(ctx, f.owner, f.input("60"))
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, 1, req.ID, "cancel", "")
	require.ErrorIs(t, err, withdrawals.ErrInvalidAction)

	out, err := f.svc.Process(ctx, 1, req.ID, "Reject", "missing invoice")
	require.NoError(t, err)
	require.Equal(t, withdrawals.StatusRejected, out.Request.Status)
	require.Equal(t, "missing invoice", out.Request.AdminNotes)
	require.True(t, f.balance().Equal(dec("100")))
	require.False(t, f.mail.sent[0].approved)

	list, err := f.svc.List(ctx, withdrawals.StatusRejected)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.Process(ctx, 1, 404, "approve", "")
	require.ErrorIs(t, err, withdrawals.ErrNotFound)
}
