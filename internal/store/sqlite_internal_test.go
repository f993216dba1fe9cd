package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "app.db?_pragma=foreign_keys(1)", dsn("app.db"))
	assert.Equal(t, "file:app.db?mode=rwc&_pragma=foreign_keys(1)", dsn("file:app.db?mode=rwc"))
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trackmate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	var conns []*sqlx.Conn
	for range 3 {
		conn, err := s.db.Connx(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)
	}

	for _, conn := range conns {
		var enabled int
		require.NoError(t, conn.GetContext(ctx, &enabled, "PRAGMA foreign_keys"))
		assert.Equal(t, 1, enabled)
	}
	for _, conn := range conns {
		require.NoError(t, conn.Close())
	}
}
