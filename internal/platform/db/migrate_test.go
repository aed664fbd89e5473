package db

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrderedAndNonEmpty(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		require.Less(t, names[i-1], names[i])
	}
	for _, name := range names {
		body, err := migrationFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		require.NotEmpty(t, strings.TrimSpace(string(body)), name)
	}
}

func TestInitialMigrationSeedsRoles(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	for _, role := range []string{"super_admin", "special_admin", "admin", "digital_investigator", "passport_registrar", "'user'", "business"} {
		require.Contains(t, string(body), role)
	}
}

func TestIsUniqueViolationIgnoresOtherErrors(t *testing.T) {
	require.False(t, IsUniqueViolation(nil, ""))
	require.False(t, IsUniqueViolation(errString("boom"), ""))
}

func TestIsUniqueViolationMatchesConstraint(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "accounts_passport_key"})
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "accounts_passport_key"))
	require.False(t, IsUniqueViolation(err, "accounts_account_number_key"))
}

type errString string

func (e errString) Error() string { return string(e) }
