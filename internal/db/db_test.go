package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/app.db")

	require.True(t, strings.HasPrefix(dsn, "file:/tmp/app.db?"))
	require.Contains(t, dsn, "foreign_keys%28ON%29")
	require.Contains(t, dsn, "busy_timeout%285000%29")
}

func TestOpenEnablesPragmasOnEveryConnection(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	conns := make([]interface{ Close() error }, 0, 3)
	for i := 0; i < 3; i++ {
		conn, err := database.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)

		var fk int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
		require.Equal(t, 1, fk)
	}
	for _, c := range conns {
		require.NoError(t, c.Close())
	}

	require.NoError(t, database.PingContext(ctx))
}
