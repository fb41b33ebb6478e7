package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/db"
	"github.com/Simplici0/estimator/internal/migrations"
	"github.com/Simplici0/estimator/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "seed-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))
	return database
}

func count(t *testing.T, database *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(query, args...).Scan(&n))
	return n
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	for i := 0; i < 5; i++ {
		stats, err := Run(ctx, database)
		require.NoError(t, err, "iteration %d", i)
		if i == 0 {
			require.Equal(t, 9, stats.Inserts)
			continue
		}
		require.Zero(t, stats.Inserts, "iteration %d", i)
	}

	require.Equal(t, 6, count(t, database, `SELECT COUNT(*) FROM resource_types WHERE overhead_percentage = '0'`))
	require.Equal(t, 1, count(t, database, `SELECT COUNT(*) FROM service_categories WHERE code = ?`, "GEN"))
	require.Equal(t, 1, count(t, database, `SELECT COUNT(*) FROM cost_matrices WHERE is_default = 1`))
	require.Equal(t, 1, count(t, database, `SELECT COUNT(*) FROM asset_categories WHERE name = ?`, "General"))
}

func TestSeededMatrixLoads(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	_, err := Run(ctx, database)
	require.NoError(t, err)

	m, err := repository.NewSQLiteMatrixRepository(database).GetDefault(ctx)
	require.NoError(t, err)
	require.Equal(t, "Default matrix", m.Name)
	require.NoError(t, m.Config.Validate())
	require.NotEmpty(t, m.Config.VolumeTiers)
}

func TestRunKeepsExistingDefaultMatrix(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	_, err := database.Exec(`
		INSERT INTO cost_matrices (name, effective_date, is_default, created_at, updated_at)
		VALUES ('Custom', '2024-01-01', 1, '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')
	`)
	require.NoError(t, err)

	stats, err := Run(ctx, database)
	require.NoError(t, err)
	require.Equal(t, 8, stats.Inserts)
	require.Equal(t, 1, count(t, database, `SELECT COUNT(*) FROM cost_matrices`))
}
