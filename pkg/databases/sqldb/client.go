// Package sqldb implements interfaces.DBClient on top of database/sql. The
// postgres and sqlite packages configure it with their driver and
// placeholder style.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haguru/schooladmin/internal/interfaces"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections to the database.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 30 * time.Second

	// IDColumn is filled with a UUID by InsertOne when the document has none.
	IDColumn = "id"
	tagName  = "db"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// DollarPlaceholder renders $1, $2, ...
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// QuestionPlaceholder renders ? for every parameter.
func QuestionPlaceholder(int) string { return "?" }

// TimeMatch renders the WHERE condition comparing a timestamp column with a
// bound time.Time parameter.
type TimeMatch func(column, placeholder string) string

// Client implements the DBClient interface for SQL databases.
type Client struct {
	db              *sql.DB
	driverName      string
	placeholder     Placeholder
	timeMatch       TimeMatch
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewClient returns an unconnected client for driverName. Zero pool settings
// fall back to the package defaults; a negative connMaxLifetime disables
// connection expiry.
func NewClient(driverName string, placeholder Placeholder, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) *Client {
	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	if maxIdleConns <= 0 {
		maxIdleConns = DefaultMaxIdleConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = DefaultConnMaxLifetime
	}
	return &Client{
		driverName:      driverName,
		placeholder:     placeholder,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
	}
}

// SetTimeMatch changes how filters on time.Time values are rendered. By
// default a plain equality is used.
func (c *Client) SetTimeMatch(match TimeMatch) {
	c.timeMatch = match
}

// Connect opens the pool and pings the database.
func (c *Client) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open(c.driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", c.driverName, err)
	}

	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(max(c.ConnMaxLifetime, 0))
	c.db = db

	return c.Ping(ctx)
}

// Disconnect closes the database pool.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InsertOne inserts a single row. 'document' is expected to be a
// map[string]interface{} of column to value. A UUID is generated for IDColumn
// when absent and returned as the inserted ID.
func (c *Client) InsertOne(ctx context.Context, tableName string, document interfaces.Document) (interface{}, error) {
	docMap, ok := document.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s InsertOne expects document to be map[string]interface{}", c.driverName)
	}
	if err := c.connected(); err != nil {
		return nil, err
	}

	row := make(map[string]interface{}, len(docMap)+1)
	for k, v := range docMap {
		row[k] = v
	}
	if _, exists := row[IDColumn]; !exists {
		row[IDColumn] = uuid.New().String()
	}

	columns := sortedKeys(row)
	placeholders := make([]string, 0, len(columns))
	values := make([]interface{}, 0, len(columns))
	for i, col := range columns {
		placeholders = append(placeholders, c.placeholder(i+1))
		values = append(values, row[col])
	}

	// table and column names come from code, never from user input
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	) // #nosec G201

	if _, err := c.db.ExecContext(ctx, query, values...); err != nil {
		return nil, err
	}
	return row[IDColumn], nil
}

// FindOne scans the single row matching 'filter' (a map[string]interface{}
// of column to value) into 'result', a pointer to a struct whose fields carry
// `db` tags.
func (c *Client) FindOne(ctx context.Context, tableName string, filter interfaces.Document, result interfaces.Document) error {
	filterMap, ok := filter.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s FindOne expects filter to be map[string]interface{}", c.driverName)
	}
	if len(filterMap) == 0 {
		return fmt.Errorf("%s FindOne requires a non-empty filter", c.driverName)
	}
	if err := c.connected(); err != nil {
		return err
	}

	columns, fieldPointers, err := structColumns(result)
	if err != nil {
		return err
	}

	where, args := c.whereClause(filterMap, 1)

	// LIMIT 2 so an ambiguous match is detected instead of silently picking a row
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 2",
		strings.Join(columns, ", "),
		tableName,
		where,
	) // #nosec G201

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return interfaces.ErrDocumentNotFound
	}
	if err := rows.Scan(fieldPointers...); err != nil {
		return err
	}
	if rows.Next() {
		return interfaces.ErrMultipleDocuments
	}
	return rows.Err()
}

// UpdateOne sets the columns in 'update' on rows matching 'filter'; both are
// map[string]interface{}. It returns the number of affected rows.
func (c *Client) UpdateOne(ctx context.Context, tableName string, filter interfaces.Document, update interfaces.Document) (int64, error) {
	filterMap, ok := filter.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("%s UpdateOne expects filter to be map[string]interface{}", c.driverName)
	}
	updateMap, ok := update.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("%s UpdateOne expects update to be map[string]interface{}", c.driverName)
	}
	if len(filterMap) == 0 || len(updateMap) == 0 {
		return 0, fmt.Errorf("%s UpdateOne requires a non-empty filter and update", c.driverName)
	}
	if err := c.connected(); err != nil {
		return 0, err
	}

	setClauses := make([]string, 0, len(updateMap))
	values := make([]interface{}, 0, len(updateMap)+len(filterMap))
	paramCount := 1
	for _, col := range sortedKeys(updateMap) {
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", col, c.placeholder(paramCount)))
		values = append(values, updateMap[col])
		paramCount++
	}

	where, whereValues := c.whereClause(filterMap, paramCount)
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		tableName,
		strings.Join(setClauses, ", "),
		where,
	) // #nosec G201

	res, err := c.db.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EnsureSchema executes the DDL in 'schema', either a single statement string
// or a []string of statements run in order.
func (c *Client) EnsureSchema(ctx context.Context, tableName string, schema interfaces.Document) error {
	if err := c.connected(); err != nil {
		return err
	}

	var statements []string
	switch s := schema.(type) {
	case string:
		statements = []string{s}
	case []string:
		statements = s
	default:
		return fmt.Errorf("EnsureSchema for %s expects a DDL string or []string, got %T", tableName, schema)
	}

	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema for %s: %w", tableName, err)
		}
	}
	return nil
}

// Ping checks the health of the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.connected(); err != nil {
		return err
	}
	return c.db.PingContext(ctx)
}

// DB exposes the underlying pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) connected() error {
	if c.db == nil {
		return fmt.Errorf("%s client is not connected to a database", c.driverName)
	}
	return nil
}

func (c *Client) whereClause(filter map[string]interface{}, start int) (string, []interface{}) {
	clauses := make([]string, 0, len(filter))
	values := make([]interface{}, 0, len(filter))
	for i, col := range sortedKeys(filter) {
		placeholder := c.placeholder(start + i)
		if _, isTime := filter[col].(time.Time); isTime && c.timeMatch != nil {
			clauses = append(clauses, c.timeMatch(col, placeholder))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s = %s", col, placeholder))
		}
		values = append(values, filter[col])
	}
	return strings.Join(clauses, " AND "), values
}

// structColumns returns the `db` tagged columns of the struct behind result
// and pointers to the matching fields, in declaration order.
func structColumns(result interfaces.Document) ([]string, []interface{}, error) {
	resultValue := reflect.ValueOf(result)
	if resultValue.Kind() != reflect.Ptr || resultValue.Elem().Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("result must be a pointer to a struct")
	}
	elem := resultValue.Elem()
	elemType := elem.Type()

	columns := make([]string, 0, elem.NumField())
	pointers := make([]interface{}, 0, elem.NumField())
	for i := 0; i < elem.NumField(); i++ {
		tag := elemType.Field(i).Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		columns = append(columns, tag)
		pointers = append(pointers, elem.Field(i).Addr().Interface())
	}
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("result struct %s has no %q tagged fields", elemType.Name(), tagName)
	}
	return columns, pointers, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
