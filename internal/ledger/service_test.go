package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedPair(store *ledgertest.Store, x, y string) (ledger.Account, ledger.Account) {
	a := store.Seed(ledger.Account{Passport: "AA1", FullName: "Alice", AccountNumber: "ACC00000001", Balance: dec(x), IsActive: true, RoleName: "user"})
	b := store.Seed(ledger.Account{Passport: "BB2", FullName: "Bob", AccountNumber: "ACC00000002", Balance: dec(y), IsActive: true, RoleName: "user"})
	return a, b
}

type recorder struct {
	mu        sync.Mutex
	published []string
	bumps     int
	movements []string
}

func (r *recorder) Publish(ctx context.Context, key string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, key)
	return nil
}

func (r *recorder) Bump(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bumps++
	return errors.New("redis down")
}

func (r *recorder) RecordMovement(kind string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, kind)
}

func TestTransferMovesMoneyAndRecordsEntry(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "1000", "500")
	svc := ledger.NewService(store, ledger.Hooks{})

	receipt, err := svc.Transfer(context.Background(), ledger.TransferInput{
		InitiatedBy: a.ID,
		From:        a.AccountNumber,
		To:          " acc00000002 ",
		Amount:      dec("200"),
	})
	require.NoError(t, err)
	require.True(t, receipt.NewBalance.Equal(dec("800")))
	require.True(t, store.Balance(a.AccountNumber).Equal(dec("800")))
	require.True(t, store.Balance(b.AccountNumber).Equal(dec("700")))

	txns := store.Transactions()
	require.Len(t, txns, 1)
	require.Equal(t, ledger.TypeTransfer, txns[0].Type)
	require.Equal(t, a.AccountNumber, txns[0].FromAccount)
	require.Equal(t, b.AccountNumber, txns[0].ToAccount)
	require.Equal(t, ledger.StatusSuccess, txns[0].Status)
	require.Equal(t, "Transfer to ACC00000002", txns[0].Description)
}

func TestTransferInsufficientFundsLeavesBalances(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "100", "0")
	svc := ledger.NewService(store, ledger.Hooks{})

	_, err := svc.Transfer(context.Background(), ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("100.01")})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, 422, httpx.Status(err))
	require.True(t, store.Balance(a.AccountNumber).Equal(dec("100")))
	require.True(t, store.Balance(b.AccountNumber).IsZero())
	require.Empty(t, store.Transactions())
}

func TestTransferRejectsBadInput(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "100", "0")
	svc := ledger.NewService(store, ledger.Hooks{})
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "1.001", "10000000000000000", "1e17"} {
		_, err := svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec(amount)})
		require.ErrorIs(t, err, ledger.ErrInvalidAmount, amount)
	}

	_, err := svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: a.AccountNumber, Amount: dec("1")})
	require.ErrorIs(t, err, ledger.ErrSameAccount)

	_, err = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: "ACC99999999", Amount: dec("1")})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: ledger.SystemAccount, Amount: dec("1")})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	store.SetActive(b.ID, false)
	_, err = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("1")})
	require.ErrorIs(t, err, ledger.ErrAccountInactive)

	require.True(t, store.Balance(a.AccountNumber).Equal(dec("100")))
	require.Empty(t, store.Transactions())
}

// The in-memory store serializes transactions; lock behaviour under real
// contention is covered by pgstore_integration_test.go.
func TestPostRequestsLocksInIDOrder(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "100", "100")
	svc := ledger.NewService(store, ledger.Hooks{})
	ctx := context.Background()

	_, err := svc.Transfer(ctx, ledger.TransferInput{From: b.AccountNumber, To: a.AccountNumber, Amount: dec("10")})
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("10")})
	require.NoError(t, err)

	for _, ids := range store.LockLog() {
		require.Equal(t, []int64{a.ID, b.ID}, ids)
	}
}

func TestConcurrentTransfersConserveTotalInMemory(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "1000", "1000")
	svc := ledger.NewService(store, ledger.Hooks{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("37.5")})
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, ledger.TransferInput{From: b.AccountNumber, To: a.AccountNumber, Amount: dec("41.25")})
		}()
	}
	wg.Wait()

	total := store.Balance(a.AccountNumber).Add(store.Balance(b.AccountNumber))
	require.True(t, total.Equal(dec("2000")), total.String())
	require.False(t, store.Balance(a.AccountNumber).IsNegative())
	require.False(t, store.Balance(b.AccountNumber).IsNegative())
}

func TestDepositRejectsBalanceOverflow(t *testing.T) {
	store := ledgertest.New()
	a, _ := seedPair(store, "9999999999999990", "0")
	svc := ledger.NewService(store, ledger.Hooks{})

	_, err := svc.Deposit(context.Background(), 9, a.AccountNumber, dec("10"), "")
	require.ErrorIs(t, err, ledger.ErrBalanceLimit)
	require.True(t, store.Balance(a.AccountNumber).Equal(dec("9999999999999990")))
	require.Empty(t, store.Transactions())

	_, err = svc.Deposit(context.Background(), 9, a.AccountNumber, dec("9.99"), "")
	require.NoError(t, err)
}

func TestDepositCreditsFromSystem(t *testing.T) {
	store := ledgertest.New()
	a, _ := seedPair(store, "0", "0")
	svc := ledger.NewService(store, ledger.Hooks{})

	receipt, err := svc.Deposit(context.Background(), 9, a.AccountNumber, dec("250.50"), "")
	require.NoError(t, err)
	require.True(t, receipt.NewBalance.Equal(dec("250.50")))
	txn := store.Transactions()[0]
	require.Equal(t, ledger.SystemAccount, txn.FromAccount)
	require.Equal(t, ledger.TypeDeposit, txn.Type)
	require.Equal(t, int64(9), txn.InitiatedBy)
}

func TestHooksRunAfterCommitOnly(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "100", "0")
	rec := &recorder{}
	svc := ledger.NewService(store, ledger.Hooks{Events: rec, Cache: rec, Metrics: rec})
	ctx := context.Background()

	_, err := svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("500")})
	require.Error(t, err)
	require.Empty(t, rec.published)

	_, err = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("50")})
	require.NoError(t, err, "cache failures must not fail a committed transfer")
	require.Equal(t, []string{ledger.RoutingMovementPosted}, rec.published)
	require.Equal(t, []string{ledger.TypeTransfer}, rec.movements)
	require.Equal(t, 1, rec.bumps)
}

func TestLookupAndDashboard(t *testing.T) {
	store := ledgertest.New()
	a, b := seedPair(store, "100", "0")
	svc := ledger.NewService(store, ledger.Hooks{})
	ctx := context.Background()

	summary, err := svc.Lookup(ctx, "acc00000002")
	require.NoError(t, err)
	require.Equal(t, "Bob", summary.FullName)

	_, err = svc.Lookup(ctx, ledger.BankAccount)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = svc.Transfer(ctx, ledger.TransferInput{From: a.AccountNumber, To: b.AccountNumber, Amount: dec("1")})
	require.NoError(t, err)
	dash, err := svc.Dashboard(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, dash.Transactions, 1)
	require.True(t, dash.Account.Balance.Equal(dec("1")))
}

func TestGenerateAccountNumberSkipsTakenNumbers(t *testing.T) {
	calls := 0
	taken := func(ctx context.Context, number string) (bool, error) {
		calls++
		return calls < 3, nil
	}
	number, err := ledger.GenerateAccountNumber(context.Background(), "ACC", 8, taken)
	require.NoError(t, err)
	require.Len(t, number, 11)
	require.Equal(t, 3, calls)

	_, err = ledger.GenerateAccountNumber(context.Background(), "BUS", 6, func(context.Context, string) (bool, error) { return true, nil })
	require.Error(t, err)
}
