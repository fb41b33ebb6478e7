package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/db"
)

func TestUpIsRepeatable(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Up(database))
	require.NoError(t, Up(database))

	v, err := Version(database)
	require.NoError(t, err)
	require.EqualValues(t, 6, v)

	for _, table := range []string{
		"resources", "unit_price_items", "project_estimate_items", "pricing_scenarios",
		"assets", "depreciation_entries", "benchmarks", "marketing_insights",
	} {
		var n int
		err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		require.Equal(t, 1, n, table)
	}
}
