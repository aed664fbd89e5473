package nfc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSessionSQLTakesRowLock(t *testing.T) {
	require.True(t, strings.HasSuffix(strings.TrimSpace(lockSessionSQL), "WHERE token = $1 FOR UPDATE"))
}
