package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/haguru/schooladmin/internal/models"
)

// ErrConcurrentUpdate is returned by UpdatePassword when the record changed
// since it was read.
var ErrConcurrentUpdate = errors.New("user record was modified concurrently")

// UserRepository defines the contract for storing and retrieving User data.
// It is database-agnostic.
type UserRepository interface {
	AddUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername returns nil, nil when the username is unknown.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdatePassword stores hashedPassword only if the record's updated_at
	// still equals expectedUpdatedAt.
	UpdatePassword(ctx context.Context, username, hashedPassword string, expectedUpdatedAt, updatedAt time.Time) error
	EnsureIndices(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
