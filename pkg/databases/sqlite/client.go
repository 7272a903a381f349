package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver for database/sql

	"github.com/haguru/schooladmin/pkg/databases/sqldb"
)

const (
	DriverName = "sqlite"
	MemoryPath = ":memory:"

	// timeFormatParam makes the driver write time.Time values in a format
	// SQLite's date functions understand.
	timeFormatParam = "_time_format=sqlite"
)

// SQLiteDatabaseClient implements the DBClient interface for an embedded SQLite file.
type SQLiteDatabaseClient struct {
	*sqldb.Client
}

// NewSQLiteDatabaseClient returns an unconnected client. SQLite allows one
// writer, so the pool is pinned to a single connection; this also keeps an
// in-memory database alive for the lifetime of the client.
func NewSQLiteDatabaseClient() *SQLiteDatabaseClient {
	client := sqldb.NewClient(DriverName, sqldb.QuestionPlaceholder, 1, 1, -1)
	client.SetTimeMatch(JulianDayMatch)
	return &SQLiteDatabaseClient{Client: client}
}

// JulianDayMatch compares timestamps by instant, so rows written with any of
// SQLite's date formats match the time.Time read back from them.
func JulianDayMatch(column, placeholder string) string {
	return fmt.Sprintf("julianday(%s) = julianday(%s)", column, placeholder)
}

// Connect opens (or creates) the database at path, creating parent directories.
func (s *SQLiteDatabaseClient) Connect(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}

	if err := s.Client.Connect(ctx, withTimeFormat(path)); err != nil {
		return err
	}

	if _, err := s.DB().ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	return nil
}

func withTimeFormat(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + timeFormatParam
	}
	return dsn + "?" + timeFormatParam
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
