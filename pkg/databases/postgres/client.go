package postgres

import (
	"errors"

	"github.com/lib/pq" // registers the "postgres" driver for database/sql

	"github.com/haguru/schooladmin/config"
	"github.com/haguru/schooladmin/pkg/databases/sqldb"
)

const (
	DriverName = "postgres"

	// uniqueViolation is the SQLSTATE for unique_violation.
	uniqueViolation = "23505"
)

// PostgresDatabaseClient implements the DBClient interface for PostgreSQL databases.
type PostgresDatabaseClient struct {
	*sqldb.Client
}

// NewPostgresDatabaseClient returns an unconnected client using the pool settings in cfg.
func NewPostgresDatabaseClient(cfg *config.PostgresConfig) *PostgresDatabaseClient {
	return &PostgresDatabaseClient{
		Client: sqldb.NewClient(
			DriverName,
			sqldb.DollarPlaceholder,
			cfg.Options.MaxOpenConns,
			cfg.Options.MaxIdleConns,
			cfg.Options.ConnMaxLifetime,
		),
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
