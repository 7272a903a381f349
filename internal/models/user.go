package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User represents an internal user model for the application/database.
// Password always holds the hashed credential, never plaintext.
type User struct {
	ID         string     `bson:"_id,omitempty" mapstructure:"id" db:"id"`
	Username   string     `bson:"username" mapstructure:"username" db:"username"`
	Password   string     `bson:"password" mapstructure:"password" db:"password"`
	Email      string     `bson:"email" mapstructure:"email" db:"email"`
	FullName   string     `bson:"full_name" mapstructure:"full_name" db:"full_name"`
	Role       string     `bson:"role" mapstructure:"role" db:"role"`
	Attributes Attributes `bson:"attributes" mapstructure:"attributes" db:"attributes"`
	CreatedAt  time.Time  `bson:"created_at" mapstructure:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" mapstructure:"updated_at" db:"updated_at"`
}

// NewUser creates a new User instance with the given username and hashed password.
// Note: No validation is performed here.
func NewUser(username string, hashedPassword string) *User {
	now := Now()
	return &User{
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Now returns the current time in the precision every directory backend can
// store and compare exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Attributes holds profile fields the directory stores but the service
// passes through untouched. It is persisted as a JSON document.
type Attributes map[string]interface{}

// Value implements driver.Valuer.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Attributes) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Attributes", src)
	}

	if len(raw) == 0 {
		*a = nil
		return nil
	}

	out := Attributes{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode attributes: %w", err)
	}
	*a = out
	return nil
}
