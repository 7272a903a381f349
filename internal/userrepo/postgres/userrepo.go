package postgres

import (
	"fmt"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/userrepo/sqlrepo"
	"github.com/haguru/schooladmin/pkg/databases/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username)`,
}

// NewPostgresUserRepository creates a PostgreSQL backed user directory.
func NewPostgresUserRepository(dbClient *postgres.PostgresDatabaseClient) (interfaces.UserRepository, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("PostgreSQL client cannot be nil")
	}

	repo, err := sqlrepo.NewSQLUserRepository(dbClient, "PostgreSQL", schema, postgres.IsUniqueViolation)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
