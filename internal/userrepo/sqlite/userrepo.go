package sqlite

import (
	"fmt"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/userrepo/sqlrepo"
	"github.com/haguru/schooladmin/pkg/databases/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`,
}

// NewSQLiteUserRepository creates a SQLite backed user directory.
func NewSQLiteUserRepository(dbClient *sqlite.SQLiteDatabaseClient) (interfaces.UserRepository, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("SQLite client cannot be nil")
	}

	repo, err := sqlrepo.NewSQLUserRepository(dbClient, "SQLite", schema, sqlite.IsUniqueViolation)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
