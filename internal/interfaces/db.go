package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrDocumentNotFound is returned by FindOne when no document matches the filter.
	ErrDocumentNotFound = errors.New("no document found")
	// ErrMultipleDocuments is returned by FindOne when more than one document matches.
	ErrMultipleDocuments = errors.New("multiple documents found")
)

// Document is a generic interface to represent data that can be stored
// and retrieved from the database. It could be a struct, a map[string]interface{},
// or any type that can be marshaled/unmarshaled by the specific database driver.
type Document interface{}

// DBClient defines the interface for a generic database client.
// It abstracts common database operations across different database types (e.g., MongoDB, SQL).
type DBClient interface {
	// Connect establishes a connection to the database.
	// It takes a context for cancellation and timeouts, and a DSN (Data Source Name) string.
	Connect(ctx context.Context, dsn string) error

	// Disconnect closes the database connection.
	Disconnect(ctx context.Context) error

	// InsertOne inserts a single document into the specified collection/table.
	// Returns the ID of the inserted document.
	InsertOne(ctx context.Context, collectionName string, document Document) (interface{}, error)

	// FindOne decodes the single document matching filter into result.
	// It returns ErrDocumentNotFound when nothing matches and
	// ErrMultipleDocuments when the match is ambiguous.
	FindOne(ctx context.Context, collectionName string, filter Document, result Document) error

	// UpdateOne sets the fields in 'update' on the document matching 'filter'.
	// Returns the count of modified documents.
	UpdateOne(ctx context.Context, collectionName string, filter Document, update Document) (int64, error)

	// EnsureSchema creates the backing table/collection and its indices.
	// The schema argument is driver specific.
	EnsureSchema(ctx context.Context, collectionName string, schema Document) error

	// Ping checks the health of the database connection.
	Ping(ctx context.Context) error
}
