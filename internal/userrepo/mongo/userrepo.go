package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/models"
	"github.com/haguru/schooladmin/internal/userrepo/constants"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	mongosdk "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoUser mirrors models.User with a native ObjectID.
type mongoUser struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Username   string             `bson:"username"`
	Password   string             `bson:"password"`
	Email      string             `bson:"email"`
	FullName   string             `bson:"full_name"`
	Role       string             `bson:"role"`
	Attributes models.Attributes  `bson:"attributes"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

// MongoUserRepository implements UserRepository using the generic DBClient.
type MongoUserRepository struct {
	dbClient interfaces.DBClient
}

// NewMongoUserRepository creates a new MongoDB repository instance.
func NewMongoUserRepository(dbClient interfaces.DBClient) (interfaces.UserRepository, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("dbClient cannot be nil")
	}
	return &MongoUserRepository{dbClient: dbClient}, nil
}

// AddUser saves a new user to MongoDB via DBClient.
func (r *MongoUserRepository) AddUser(ctx context.Context, user models.User) (string, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = models.Now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	// MongoDB generates the ObjectID
	doc := bson.M{
		constants.FieldUsername:   user.Username,
		constants.FieldPassword:   user.Password,
		constants.FieldEmail:      user.Email,
		constants.FieldFullName:   user.FullName,
		constants.FieldRole:       user.Role,
		constants.FieldAttributes: user.Attributes,
		constants.FieldCreatedAt:  user.CreatedAt,
		constants.FieldUpdatedAt:  user.UpdatedAt,
	}

	insertedID, err := r.dbClient.InsertOne(ctx, constants.UsersCollection, doc)
	if err != nil {
		if mongosdk.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: '%s'", constants.ErrUserAlreadyExists, user.Username)
		}
		return "", fmt.Errorf("failed to add user to MongoDB: %w", err)
	}

	objID, ok := insertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to assert inserted ID to ObjectID")
	}
	return objID.Hex(), nil
}

// GetUserByUsername retrieves a user from MongoDB via DBClient, or nil when absent.
// Uniqueness is enforced by the index created in EnsureIndices.
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var found mongoUser
	filter := bson.M{constants.FieldUsername: username}
	err := r.dbClient.FindOne(ctx, constants.UsersCollection, filter, &found)
	if errors.Is(err, interfaces.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username from MongoDB: %w", err)
	}

	return &models.User{
		ID:         found.ID.Hex(),
		Username:   found.Username,
		Password:   found.Password,
		Email:      found.Email,
		FullName:   found.FullName,
		Role:       found.Role,
		Attributes: found.Attributes,
		CreatedAt:  found.CreatedAt.UTC(),
		UpdatedAt:  found.UpdatedAt.UTC(),
	}, nil
}

// UpdatePassword sets the new hash if updated_at still equals expectedUpdatedAt.
func (r *MongoUserRepository) UpdatePassword(ctx context.Context, username, hashedPassword string, expectedUpdatedAt, updatedAt time.Time) error {
	filter := bson.M{
		constants.FieldUsername:  username,
		constants.FieldUpdatedAt: expectedUpdatedAt.UTC(),
	}
	update := bson.M{
		constants.FieldPassword:  hashedPassword,
		constants.FieldUpdatedAt: updatedAt.UTC(),
	}

	n, err := r.dbClient.UpdateOne(ctx, constants.UsersCollection, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update password in MongoDB: %w", err)
	}
	if n == 0 {
		return interfaces.ErrConcurrentUpdate
	}
	return nil
}

// EnsureIndices creates the unique username index.
func (r *MongoUserRepository) EnsureIndices(ctx context.Context) error {
	indexModel := mongosdk.IndexModel{
		Keys:    bson.D{{Key: constants.FieldUsername, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	return r.dbClient.EnsureSchema(ctx, constants.UsersCollection, indexModel)
}

// Ping checks the directory is reachable.
func (r *MongoUserRepository) Ping(ctx context.Context) error {
	return r.dbClient.Ping(ctx)
}

// Close disconnects the MongoDB client.
func (r *MongoUserRepository) Close(ctx context.Context) error {
	return r.dbClient.Disconnect(ctx)
}
