package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/gtclicks/ledger-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no %s migration found", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_ledger")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS balances",
		"CONSTRAINT chk_balances_available CHECK (available >= 0)",
		"CONSTRAINT chk_balances_blocked CHECK (blocked >= 0)",
		"amount numeric(12,2) NOT NULL CHECK (amount > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_item_kind ON ledger_entries (order_item_id, kind)",
		"DROP TABLE IF EXISTS ledger_entries",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPlatformConfigMigrationSeedsDefaults(t *testing.T) {
	content := readMigration(t, "create_platform_configs")

	require.Contains(t, content, "('COMMISSION_PCT', 20, 1)")
	require.Contains(t, content, "('MIN_WITHDRAWAL', 50, 1)")
	require.Contains(t, content, "UNIQUE (key, version)")
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid migration filename")
}

func TestEmbeddedMigrationsMatchDir(t *testing.T) {
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
	require.NoError(t, migrate.Validate(migrate.Migrations()))
}

func TestValidateRejectsUnbalancedStatements(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301120000_broken.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
	}
	err := migrate.Validate(fsys)
	require.ErrorContains(t, err, "StatementBegin")
}

func TestValidateRejectsDownBeforeUp(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301120000_flipped.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
	}
	require.ErrorContains(t, migrate.Validate(fsys), "Down before Up")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Payout Index")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_payout_index.sql"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "-- +goose Up")
	require.Contains(t, string(data), "-- +goose Down")
	require.NoError(t, migrate.ValidateDir(dir))
}
