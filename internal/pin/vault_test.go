package pin_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/pin/pintest"
)

var testParams = pin.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32}

type failureCounter struct {
	failures, lockouts int
}

func (f *failureCounter) RecordPinFailure(locked bool) {
	f.failures++
	if locked {
		f.lockouts++
	}
}

func newVault() (*pin.Vault, *pintest.Store, *failureCounter) {
	store := pintest.New()
	metrics := &failureCounter{}
	return pin.NewVault(store, pin.Config{Params: testParams, Metrics: metrics}), store, metrics
}

func TestFourFailuresLeaveRecordUnlocked(t *testing.T) {
	vault, store, _ := newVault()
	ctx := context.Background()
	require.NoError(t, vault.SetPin(ctx, 7, 3, "1234"))

	for i := 0; i < 4; i++ {
		require.ErrorIs(t, vault.Verify(ctx, 7, 3, "9999"), pin.ErrPinMismatch)
	}
	rec, ok := store.Record(7, 3)
	require.True(t, ok)
	require.Equal(t, 4, rec.Attempts)
	require.False(t, rec.Locked)

	require.NoError(t, vault.Verify(ctx, 7, 3, "1234"))
	rec, _ = store.Record(7, 3)
	require.Zero(t, rec.Attempts)
}

func TestFifthFailureLocksPermanently(t *testing.T) {
	vault, store, metrics := newVault()
	ctx := context.Background()
	require.NoError(t, vault.SetPin(ctx, 7, 3, "1234"))

	for i := 0; i < 4; i++ {
		require.ErrorIs(t, vault.Verify(ctx, 7, 3, "9999"), pin.ErrPinMismatch)
	}
	require.ErrorIs(t, vault.Verify(ctx, 7, 3, "9999"), pin.ErrPinLocked)
	require.ErrorIs(t, vault.Verify(ctx, 7, 3, "1234"), pin.ErrPinLocked)

	rec, _ := store.Record(7, 3)
	require.True(t, rec.Locked)
	require.Equal(t, 5, rec.Attempts)
	require.Equal(t, 6, metrics.failures)
	require.Equal(t, 2, metrics.lockouts)

	status, err := vault.Status(ctx, 7, 3)
	require.NoError(t, err)
	require.True(t, status.HasPin)
	require.True(t, status.Locked)
}

func TestSetPinClearsLockoutAndRotatesSalt(t *testing.T) {
	vault, store, _ := newVault()
	ctx := context.Background()
	require.NoError(t, vault.SetPin(ctx, 1, 1, "4321"))
	first, _ := store.Record(1, 1)
	for i := 0; i < 5; i++ {
		_ = vault.Verify(ctx, 1, 1, "0000")
	}

	require.NoError(t, vault.SetPin(ctx, 1, 1, "4321"))
	second, _ := store.Record(1, 1)
	require.False(t, second.Locked)
	require.Zero(t, second.Attempts)
	require.False(t, bytes.Equal(first.Salt, second.Salt))
	require.False(t, bytes.Equal(first.Hash, second.Hash))
	require.NotContains(t, string(second.Hash), "4321")
	require.NoError(t, vault.Verify(ctx, 1, 1, "4321"))
}

func TestVerifyUnknownRecord(t *testing.T) {
	vault, _, _ := newVault()
	require.ErrorIs(t, vault.Verify(context.Background(), 1, 2, "1234"), pin.ErrNotFound)

	status, err := vault.Status(context.Background(), 1, 2)
	require.NoError(t, err)
	require.False(t, status.HasPin)
}

func TestSetPinRejectsMalformedPins(t *testing.T) {
	vault, store, _ := newVault()
	for _, raw := range []string{"", "123", "1234567", "12a4", "１２３４"} {
		require.ErrorIs(t, vault.SetPin(context.Background(), 1, 1, raw), pin.ErrInvalidPin, raw)
	}
	_, ok := store.Record(1, 1)
	require.False(t, ok)
	require.NoError(t, pin.ValidatePin("000000"))
}
