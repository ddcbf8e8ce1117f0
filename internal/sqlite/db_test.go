package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"conference_sessions",
		"presentations",
		"audit_log",
		"presentations_fts",
		"accounts",
		"api_keys",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	// Migrations are idempotent so the server can run them on every start.
	require.NoError(t, db.RunMigrations())
}
