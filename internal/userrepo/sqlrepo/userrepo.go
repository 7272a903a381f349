// Package sqlrepo is the UserRepository shared by the SQL directories. The
// postgres and sqlite packages supply the DDL and the unique violation check.
package sqlrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/models"
	"github.com/haguru/schooladmin/internal/userrepo/constants"
)

// SQLUserRepository implements UserRepository over a SQL DBClient.
type SQLUserRepository struct {
	dbClient          interfaces.DBClient
	backend           string
	schema            []string
	isUniqueViolation func(error) bool
}

// NewSQLUserRepository creates a repository for backend (used in error
// messages). schema is run by EnsureIndices.
func NewSQLUserRepository(dbClient interfaces.DBClient, backend string, schema []string, isUniqueViolation func(error) bool) (*SQLUserRepository, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("dbClient cannot be nil")
	}
	return &SQLUserRepository{
		dbClient:          dbClient,
		backend:           backend,
		schema:            schema,
		isUniqueViolation: isUniqueViolation,
	}, nil
}

// AddUser saves a new user and returns its generated ID.
func (r *SQLUserRepository) AddUser(ctx context.Context, user models.User) (string, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = models.Now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	doc := map[string]interface{}{
		constants.FieldUsername:   user.Username,
		constants.FieldPassword:   user.Password,
		constants.FieldEmail:      user.Email,
		constants.FieldFullName:   user.FullName,
		constants.FieldRole:       user.Role,
		constants.FieldAttributes: user.Attributes,
		constants.FieldCreatedAt:  user.CreatedAt,
		constants.FieldUpdatedAt:  user.UpdatedAt,
	}
	if user.ID != "" {
		doc[constants.FieldID] = user.ID
	}

	insertedID, err := r.dbClient.InsertOne(ctx, constants.UsersCollection, doc)
	if err != nil {
		if r.isUniqueViolation != nil && r.isUniqueViolation(err) {
			return "", fmt.Errorf("%w: '%s'", constants.ErrUserAlreadyExists, user.Username)
		}
		return "", fmt.Errorf("failed to add user to %s: %w", r.backend, err)
	}

	strID, ok := insertedID.(string)
	if !ok {
		return "", fmt.Errorf("failed to assert inserted ID to string (expected UUID)")
	}
	return strID, nil
}

// GetUserByUsername retrieves a user by exact username, or nil when absent.
func (r *SQLUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	filter := map[string]interface{}{constants.FieldUsername: username}

	err := r.dbClient.FindOne(ctx, constants.UsersCollection, filter, &user)
	if errors.Is(err, interfaces.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username from %s: %w", r.backend, err)
	}

	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

// UpdatePassword replaces the hash for username if the row still carries expectedUpdatedAt.
func (r *SQLUserRepository) UpdatePassword(ctx context.Context, username, hashedPassword string, expectedUpdatedAt, updatedAt time.Time) error {
	filter := map[string]interface{}{
		constants.FieldUsername:  username,
		constants.FieldUpdatedAt: expectedUpdatedAt.UTC(),
	}
	update := map[string]interface{}{
		constants.FieldPassword:  hashedPassword,
		constants.FieldUpdatedAt: updatedAt.UTC(),
	}

	n, err := r.dbClient.UpdateOne(ctx, constants.UsersCollection, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update password in %s: %w", r.backend, err)
	}
	if n == 0 {
		return interfaces.ErrConcurrentUpdate
	}
	return nil
}

// EnsureIndices creates the users table and its unique username index.
func (r *SQLUserRepository) EnsureIndices(ctx context.Context) error {
	return r.dbClient.EnsureSchema(ctx, constants.UsersCollection, r.schema)
}

// Ping checks the directory is reachable.
func (r *SQLUserRepository) Ping(ctx context.Context) error {
	return r.dbClient.Ping(ctx)
}

// Close closes the database connection.
func (r *SQLUserRepository) Close(ctx context.Context) error {
	return r.dbClient.Disconnect(ctx)
}
