package constants

import "errors"

const (
	UsersCollection = "users"

	FieldID         = "id"
	FieldUsername   = "username"
	FieldPassword   = "password" // #nosec G101
	FieldEmail      = "email"
	FieldFullName   = "full_name"
	FieldRole       = "role"
	FieldAttributes = "attributes"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
)

// ErrUserAlreadyExists is returned by AddUser when the username is taken.
var ErrUserAlreadyExists = errors.New("username already exists")
