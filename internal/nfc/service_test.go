package nfc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc/nfctest"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/pin/pintest"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

type fixture struct {
	svc      *nfc.Service
	vault    *pin.Vault
	links    *nfc.LinkSigner
	store    *nfctest.Store
	accounts *ledgertest.Store
	pins     *pintest.Store
	now      time.Time
	buyer    ledger.Account
	seller   ledger.Account
	other    ledger.Account
	metrics  *sessionCounter
}

type sessionCounter struct{ outcomes []string }

func (c *sessionCounter) RecordSession(outcome string) { c.outcomes = append(c.outcomes, outcome) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: ledgertest.New(),
		pins:     pintest.New(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		metrics:  &sessionCounter{},
	}
	f.buyer = f.accounts.Seed(ledger.Account{Passport: "P1", FullName: "Buyer", AccountNumber: "ACC10000001", Balance: dec("1000"), IsActive: true, RoleName: shared.RoleUser})
	f.seller = f.accounts.Seed(ledger.Account{Passport: "BUS1", FullName: "Coffee Ltd", AccountNumber: "BUS100001", IsActive: true, RoleName: shared.RoleBusiness})
	f.other = f.accounts.Seed(ledger.Account{Passport: "BUS2", FullName: "Bakery Ltd", AccountNumber: "BUS100002", IsActive: true, RoleName: shared.RoleBusiness})
	f.store = nfctest.New(f.accounts, f.pins)

	f.vault = pin.NewVault(f.pins, pin.Config{Params: pin.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32}})
	links, err := nfc.NewLinkSigner("test-link-secret-0123456789")
	require.NoError(t, err)
	f.links = links
	f.svc = f.serviceOver(f.store, ledger.Hooks{})
	return f
}

// serviceOver builds a service sharing the fixture's vault, links and clock.
func (f *fixture) serviceOver(store nfc.Store, hooks ledger.Hooks) *nfc.Service {
	return nfc.NewService(store, f.vault, f.links, hooks, nil, f.metrics, nil, nfc.Config{
		PublicBaseURL: "https://bank.test/",
		Clock:         func() time.Time { return f.now },
	})
}

func (f *fixture) principal(acc ledger.Account) rbac.Principal {
	return rbac.NewPrincipal(rbac.Identity{AccountID: acc.ID, AccountNumber: acc.AccountNumber, RoleName: acc.RoleName})
}

// register binds a tag to acc and returns it with its link token.
func (f *fixture) register(t *testing.T, acc ledger.Account, uid, rawPin string) (nfc.Tag, string) {
	t.Helper()
	reg, err := f.svc.RegisterTag(context.Background(), 1, nfc.RegisterInput{AccountID: acc.ID, TagUID: uid, Pin: rawPin})
	require.NoError(t, err)
	return reg.Tag, reg.PayLink[strings.LastIndex(reg.PayLink, "/")+1:]
}

func (f *fixture) openWithAmount(t *testing.T, amount string) (nfc.Tag, nfc.Session) {
	t.Helper()
	tag, token := f.register(t, f.buyer, "04A1B2", "1234")
	sess, err := f.svc.Open(context.Background(), f.principal(f.seller), tag.ID, token)
	require.NoError(t, err)
	_, err = f.svc.SetAmount(context.Background(), f.principal(f.seller), sess.Token, dec(amount))
	require.NoError(t, err)
	return tag, sess
}

func TestRegisterTagNormalisesAndSetsPin(t *testing.T) {
	f := newFixture(t)
	reg, err := f.svc.RegisterTag(context.Background(), 1, nfc.RegisterInput{AccountID: f.buyer.ID, TagUID: " 04a1b2 ", Pin: "1234"})
	require.NoError(t, err)
	require.Equal(t, "04A1B2", reg.Tag.TagUID)
	require.True(t, strings.HasPrefix(reg.PayLink, "https://bank.test/nfc/pay/1/"))

	_, ok := f.pins.Record(f.buyer.ID, reg.Tag.ID)
	require.True(t, ok)

	_, err = f.svc.RegisterTag(context.Background(), 1, nfc.RegisterInput{AccountID: f.other.ID, TagUID: "04A1B2", Pin: "1234"})
	require.ErrorIs(t, err, nfc.ErrTagExists)

	_, err = f.svc.RegisterTag(context.Background(), 1, nfc.RegisterInput{AccountID: f.buyer.ID, TagUID: "FF00", Pin: "12"})
	require.ErrorIs(t, err, pin.ErrInvalidPin)

	f.accounts.SetActive(f.other.ID, false)
	_, err = f.svc.RegisterTag(context.Background(), 1, nfc.RegisterInput{AccountID: f.other.ID, TagUID: "FF01", Pin: "1234"})
	require.ErrorIs(t, err, nfc.ErrOwnerInactive)

	_, err = f.svc.RegisterTag(context.Background(), 1, nfc.RegisterInput{AccountID: 404, TagUID: "FF02", Pin: "1234"})
	require.ErrorIs(t, err, nfc.ErrOwnerNotFound)

	tags, err := f.svc.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)
}

func TestConfirmPaysOnceThenRejectsReplay(t *testing.T) {
	f := newFixture(t)
	_, sess := f.openWithAmount(t, "250")
	ctx := context.Background()

	payment, err := f.svc.Confirm(ctx, sess.Token, "1234")
	require.NoError(t, err)
	require.True(t, payment.NewBalance.Equal(dec("750")))
	require.True(t, f.accounts.Balance(f.seller.AccountNumber).Equal(dec("250")))

	stored, _ := f.store.Session(sess.Token)
	require.Equal(t, nfc.StatusPaid, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	_, err = f.svc.Confirm(ctx, sess.Token, "1234")
	require.ErrorIs(t, err, nfc.ErrSessionPaid)
	require.True(t, f.accounts.Balance(f.buyer.AccountNumber).Equal(dec("750")))

	txns := f.accounts.Transactions()
	require.Len(t, txns, 1)
	require.Equal(t, ledger.TypeNFCPayment, txns[0].Type)

	status, err := f.svc.Status(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, nfc.StatusPaid, status.Status)
	require.True(t, status.Amount.Equal(dec("250")))
	require.Contains(t, f.metrics.outcomes, nfc.StatusPaid)
}

func TestOpenRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag, token := f.register(t, f.buyer, "04A1B2", "1234")
	sellerTag, sellerToken := f.register(t, f.seller, "04FFFF", "4321")

	_, err := f.svc.Open(ctx, f.principal(f.seller), tag.ID, "not-a-token")
	require.ErrorIs(t, err, nfc.ErrTagNotFound)

	_, err = f.svc.Open(ctx, f.principal(f.seller), tag.ID, sellerToken)
	require.ErrorIs(t, err, nfc.ErrTagNotFound)

	_, err = f.svc.Open(ctx, f.principal(f.buyer), sellerTag.ID, sellerToken)
	require.ErrorIs(t, err, nfc.ErrNotBusiness)

	_, err = f.svc.Open(ctx, f.principal(f.seller), sellerTag.ID, sellerToken)
	require.ErrorIs(t, err, nfc.ErrSelfPayment)

	require.NoError(t, f.svc.DeactivateTag(ctx, 1, tag.ID))
	_, err = f.svc.Open(ctx, f.principal(f.seller), tag.ID, token)
	require.ErrorIs(t, err, nfc.ErrTagInactive)
}

func TestSetAmountChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag, token := f.register(t, f.buyer, "04A1B2", "1234")
	sess, err := f.svc.Open(ctx, f.principal(f.seller), tag.ID, token)
	require.NoError(t, err)
	require.Equal(t, "Buyer", sess.BuyerName)
	require.Equal(t, f.now.Add(10*time.Minute), sess.ExpiresAt)

	_, err = f.svc.SetAmount(ctx, f.principal(f.other), sess.Token, dec("10"))
	require.ErrorIs(t, err, nfc.ErrNotSeller)

	_, err = f.svc.SetAmount(ctx, f.principal(f.seller), sess.Token, dec("0"))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = f.svc.SetAmount(ctx, f.principal(f.seller), "missing", dec("10"))
	require.ErrorIs(t, err, nfc.ErrSessionNotFound)

	_, err = f.svc.Confirm(ctx, sess.Token, "1234")
	require.ErrorIs(t, err, nfc.ErrAmountNotSet)
}

// amountSwapStore rewrites a session's amount right after the first read,
// simulating a seller edit landing between PIN entry and the payment.
type amountSwapStore struct {
	*nfctest.Store
	swapped bool
	amount  decimal.Decimal
}

func (s *amountSwapStore) SessionByToken(ctx context.Context, token string) (nfc.Session, error) {
	sess, err := s.Store.SessionByToken(ctx, token)
	if err != nil || s.swapped {
		return sess, err
	}
	s.swapped = true
	changed := sess
	changed.Amount = &s.amount
	if err := s.Store.UpdateSession(ctx, changed); err != nil {
		return nfc.Session{}, err
	}
	return sess, nil
}

func TestConfirmRejectsAmountChangedAfterPinCheck(t *testing.T) {
	f := newFixture(t)
	_, sess := f.openWithAmount(t, "10")
	svc := f.serviceOver(&amountSwapStore{Store: f.store, amount: dec("900")}, ledger.Hooks{})

	_, err := svc.Confirm(context.Background(), sess.Token, "1234")
	require.ErrorIs(t, err, nfc.ErrAmountChanged)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
	require.Empty(t, f.accounts.Transactions())
	require.True(t, f.accounts.Balance(f.buyer.AccountNumber).Equal(dec("1000")))
	require.True(t, f.accounts.Balance(f.seller.AccountNumber).IsZero())

	stored, _ := f.store.Session(sess.Token)
	require.Equal(t, nfc.StatusPending, stored.Status)
	require.True(t, stored.Amount.Equal(dec("900")))
}

type bumpCounter struct{ n int }

func (b *bumpCounter) Bump(ctx context.Context) error {
	b.n++
	return nil
}

func TestSessionLifecycleInvalidatesReportCache(t *testing.T) {
	f := newFixture(t)
	bumps := &bumpCounter{}
	f.svc = f.serviceOver(f.store, ledger.Hooks{Cache: bumps})
	ctx := context.Background()

	_, sess := f.openWithAmount(t, "10")
	require.Equal(t, 1, bumps.n, "opening a session changes the pending count")

	n, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, bumps.n, "an empty sweep changes nothing")

	f.now = f.now.Add(11 * time.Minute)
	n, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, 2, bumps.n)

	stored, _ := f.store.Session(sess.Token)
	require.Equal(t, nfc.StatusExpired, stored.Status)
}

func TestConfirmAfterExpiryFails(t *testing.T) {
	f := newFixture(t)
	_, sess := f.openWithAmount(t, "10")
	ctx := context.Background()

	f.now = f.now.Add(10*time.Minute + time.Second)
	_, err := f.svc.Confirm(ctx, sess.Token, "1234")
	require.ErrorIs(t, err, nfc.ErrSessionExpired)
	require.True(t, f.accounts.Balance(f.buyer.AccountNumber).Equal(dec("1000")))

	status, err := f.svc.Status(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, nfc.StatusExpired, status.Status)

	n, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	stored, _ := f.store.Session(sess.Token)
	require.Equal(t, nfc.StatusExpired, stored.Status)

	_, err = f.svc.SetAmount(ctx, f.principal(f.seller), sess.Token, dec("5"))
	require.ErrorIs(t, err, nfc.ErrSessionExpired)
}

func TestWrongPinCountsAttemptWithoutMovingMoney(t *testing.T) {
	f := newFixture(t)
	tag, sess := f.openWithAmount(t, "10")
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, sess.Token, "9999")
	require.ErrorIs(t, err, pin.ErrPinMismatch)
	rec, _ := f.pins.Record(f.buyer.ID, tag.ID)
	require.Equal(t, 1, rec.Attempts)
	require.Empty(t, f.accounts.Transactions())

	stored, _ := f.store.Session(sess.Token)
	require.Equal(t, nfc.StatusPending, stored.Status)

	for i := 0; i < 4; i++ {
		_, _ = f.svc.Confirm(ctx, sess.Token, "0000")
	}
	_, err = f.svc.Confirm(ctx, sess.Token, "1234")
	require.ErrorIs(t, err, pin.ErrPinLocked)

	require.NoError(t, f.svc.ResetPin(ctx, 1, tag.ID, "5678"))
	_, err = f.svc.Confirm(ctx, sess.Token, "5678")
	require.NoError(t, err)
}

func TestConfirmInsufficientFundsKeepsSessionPending(t *testing.T) {
	f := newFixture(t)
	_, sess := f.openWithAmount(t, "1000.01")

	_, err := f.svc.Confirm(context.Background(), sess.Token, "1234")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	stored, _ := f.store.Session(sess.Token)
	require.Equal(t, nfc.StatusPending, stored.Status)
	require.True(t, f.accounts.Balance(f.buyer.AccountNumber).Equal(dec("1000")))
	require.True(t, f.accounts.Balance(f.seller.AccountNumber).IsZero())
}

func TestTagDetailsAndUnknownStatus(t *testing.T) {
	f := newFixture(t)
	tag, sess := f.openWithAmount(t, "40.50")
	ctx := context.Background()
	_, err := f.svc.Confirm(ctx, sess.Token, "1234")
	require.NoError(t, err)

	details, err := f.svc.TagDetails(ctx, tag.ID)
	require.NoError(t, err)
	require.True(t, details.Pin.HasPin)
	require.False(t, details.Pin.Locked)
	require.Equal(t, int64(1), details.Stats.Payments)
	require.True(t, details.Stats.Total.Equal(dec("40.50")))
	require.Equal(t, "Buyer", details.Tag.OwnerName)

	status, err := f.svc.Status(ctx, "nope")
	require.NoError(t, err)
	require.Equal(t, nfc.StatusNotFound, status.Status)

	_, err = f.svc.TagDetails(ctx, 999)
	require.ErrorIs(t, err, nfc.ErrTagNotFound)
}

func TestLinkSigner(t *testing.T) {
	_, err := nfc.NewLinkSigner("short")
	require.Error(t, err)

	a, err := nfc.NewLinkSigner("first-secret-0123456789")
	require.NoError(t, err)
	b, err := nfc.NewLinkSigner("second-secret-0123456789")
	require.NoError(t, err)

	token, err := a.Sign(7)
	require.NoError(t, err)
	require.NoError(t, a.Verify(token, 7))
	require.ErrorIs(t, a.Verify(token, 8), nfc.ErrTagNotFound)
	require.ErrorIs(t, b.Verify(token, 7), nfc.ErrTagNotFound)
}
