package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAtRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	path, err := createAt(dir, "Backfill  payout--notes!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260302093000_backfill_payout_notes.sql"), path)

	_, err = createAt(dir, "backfill payout notes", now)
	require.Error(t, err)

	_, err = createAt(dir, "!!!", now)
	require.ErrorContains(t, err, "no usable characters")

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
