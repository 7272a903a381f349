package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeFormat(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"memory", MemoryPath, MemoryPath + "?_time_format=sqlite"},
		{"file path", "./data/school.db", "./data/school.db?_time_format=sqlite"},
		{"existing query", "file:school.db?mode=rwc", "file:school.db?mode=rwc&_time_format=sqlite"},
		{"already set", "school.db?_time_format=sqlite", "school.db?_time_format=sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withTimeFormat(tt.dsn))
		})
	}
}

func TestJulianDayMatch(t *testing.T) {
	assert.Equal(t, "julianday(updated_at) = julianday(?)", JulianDayMatch("updated_at", "?"))
}

func TestSQLiteDatabaseClient_Connect(t *testing.T) {
	ctx := context.Background()

	client := NewSQLiteDatabaseClient()
	assert.Error(t, client.Connect(ctx, ""))

	path := filepath.Join(t.TempDir(), "nested", "school.db")
	require.NoError(t, client.Connect(ctx, path))
	assert.NoError(t, client.Ping(ctx))
	assert.NoError(t, client.Disconnect(ctx))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
}
