// Package storagetest provides migrated databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seamed/tracker/pkg/storage"
)

// NewSQLite returns a migrated in-memory SQLite database closed at test end
func NewSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.Config{
		Driver: storage.DriverSQLite,
		URL:    ":memory:",
	})
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}
