package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockAccountsSQLLocksInIDOrder(t *testing.T) {
	sql := strings.Join(strings.Fields(lockAccountsSQL), " ")
	require.Contains(t, sql, "ORDER BY a.id FOR UPDATE OF a")
	require.True(t, strings.HasSuffix(sql, "FOR UPDATE OF a"), "the row lock must cover accounts only, not roles")
}
