package testutils

import (
	"database/sql"
	"path/filepath"
	"testing"

	"todolist/db"
	"todolist/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// SetupTestDatabase opens a schema-initialized SQLite file in a temp dir.
// The database is closed when the test finishes.
func SetupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	err = db.InitializeSchema(testDB)
	require.NoError(t, err)

	return testDB
}

func SetupTestRepositoryFactory(t *testing.T) *db.RepositoryFactory {
	t.Helper()
	return db.NewRepositoryFactory(SetupTestDatabase(t), nil, "todos_test")
}

func GetTestConfig() *config.Config {
	return &config.Config{
		DatabaseType:  config.SQLite,
		DatabaseName:  "todos_test",
		SQLitePath:    ":memory:",
		SessionSecret: []byte("test_session_secret_key_for_testing_only"),
		SessionMaxAge: 3600,
		CookieSecure:  false,
		Env:           config.EnvDevelopment,
		Port:          "0",
	}
}
