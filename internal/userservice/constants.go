package userservice

import "errors"

const (
	// Log messages for user service operations
	MsgFailedToHashPassword = "failed to hash password" // #nosec G101
	MsgFailedToRegisterUser = "failed to register user"
	MsgRetrievingUser       = "error retrieving user"
	MsgUserNotFound         = "user not found"
	MsgInvalidPassword      = "invalid password"
	MsgMalformedHash        = "stored password hash is unusable" // #nosec G101
	MsgFailedToUpdate       = "failed to update password"
)

var (
	// ErrInvalidCredentials is returned when the supplied password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when the directory holds no such username.
	ErrUserNotFound = errors.New(MsgUserNotFound)
	// ErrDirectoryLookup is returned when the directory could not answer a lookup.
	ErrDirectoryLookup = errors.New(MsgRetrievingUser)
	// ErrPasswordUpdate is returned when the new password could not be stored.
	ErrPasswordUpdate = errors.New(MsgFailedToUpdate)
)
