package pin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockRecordSQLTakesRowLock(t *testing.T) {
	require.True(t, strings.HasSuffix(strings.TrimSpace(lockRecordSQL), "FOR UPDATE"))
}
