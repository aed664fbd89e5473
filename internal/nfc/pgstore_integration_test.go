package nfc_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/db/dbtest"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

func createPGAccount(t *testing.T, pool *pgxpool.Pool, number, role, balance string) ledger.Account {
	t.Helper()
	var acc ledger.Account
	err := ledger.NewPGStore(pool).WithTx(context.Background(), func(ctx context.Context, tx ledger.TxStore) error {
		var err error
		acc, err = ledger.CreateAccount(ctx, tx, ledger.NewAccount{
			Passport:      "P" + number,
			FullName:      "Holder " + number,
			AccountNumber: number,
			Balance:       dec(balance),
			RoleName:      role,
			PasswordHash:  "x",
		})
		return err
	})
	require.NoError(t, err)
	return acc
}

func TestPGConcurrentConfirmPaysOnce(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	buyer := createPGAccount(t, pool, "ACC30000001", shared.RoleUser, "1000")
	seller := createPGAccount(t, pool, "BUS300001", shared.RoleBusiness, "0")

	vault := pin.NewVault(pin.NewPGStore(pool), pin.Config{Params: pin.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32}})
	links, err := nfc.NewLinkSigner("test-link-secret-0123456789")
	require.NoError(t, err)
	svc := nfc.NewService(nfc.NewPGStore(pool), vault, links, ledger.Hooks{}, nil, nil, nil, nfc.Config{PublicBaseURL: "https://bank.test/"})

	reg, err := svc.RegisterTag(ctx, 0, nfc.RegisterInput{AccountID: buyer.ID, TagUID: "04C0FFEE", Pin: "1234"})
	require.NoError(t, err)
	linkToken := reg.PayLink[strings.LastIndex(reg.PayLink, "/")+1:]

	sellerPrincipal := rbac.NewPrincipal(rbac.Identity{AccountID: seller.ID, AccountNumber: seller.AccountNumber, RoleName: shared.RoleBusiness})
	sess, err := svc.Open(ctx, sellerPrincipal, reg.Tag.ID, linkToken)
	require.NoError(t, err)
	_, err = svc.SetAmount(ctx, sellerPrincipal, sess.Token, dec("250"))
	require.NoError(t, err)

	const callers = 4
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Confirm(ctx, sess.Token, "1234")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var paid int
	for err := range errs {
		if err == nil {
			paid++
			continue
		}
		require.ErrorIs(t, err, nfc.ErrSessionPaid)
	}
	require.Equal(t, 1, paid)

	var debits int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE from_account = $1`, buyer.AccountNumber).Scan(&debits))
	require.Equal(t, 1, debits)

	status, err := svc.Status(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, nfc.StatusPaid, status.Status)

	var balance string
	require.NoError(t, pool.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE id = $1`, buyer.ID).Scan(&balance))
	require.True(t, dec(balance).Equal(dec("750")))
}
