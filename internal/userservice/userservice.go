package userservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/models"
	"github.com/haguru/schooladmin/pkg/hasher"
	"github.com/haguru/schooladmin/pkg/helper"
)

type UserService struct {
	UserRepo interfaces.UserRepository
	Hasher   interfaces.PasswordHasher
	Logger   interfaces.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(repo interfaces.UserRepository, passwordHasher interfaces.PasswordHasher, logger interfaces.Logger) *UserService {
	return &UserService{
		UserRepo: repo,
		Hasher:   passwordHasher,
		Logger:   logger,
	}
}

// RegisterUser hashes the password and adds the user via the repository.
// Profile fields on user are stored as given; its Password is replaced.
func (s *UserService) RegisterUser(ctx context.Context, user models.User, password string) (string, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", user.Username)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", user.Username)

	hashedPassword, err := s.Hasher.Hash(password)
	if err != nil {
		s.Logger.Error(MsgFailedToHashPassword, "func", funcName, "user", user.Username, "error", err)
		return "", fmt.Errorf("%s: %w", MsgFailedToHashPassword, err)
	}
	user.Password = hashedPassword

	userID, err := s.UserRepo.AddUser(ctx, user)
	if err != nil {
		s.Logger.Error(MsgFailedToRegisterUser, "func", funcName, "user", user.Username, "error", err)
		return "", fmt.Errorf("%s: %w", MsgFailedToRegisterUser, err)
	}
	s.Logger.Info("User registered successfully", "func", funcName, "user", user.Username, "ID", userID)
	return userID, nil
}

// AuthenticateUser verifies a user's credentials and returns the stored record.
// Callers must not expose the Password field of the result.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", username)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", username)

	user, err := s.lookup(ctx, funcName, username)
	if err != nil {
		return nil, err
	}

	if err := s.verify(funcName, user, password); err != nil {
		return nil, err
	}

	s.Logger.Info("User authenticated successfully", "func", funcName, "user", username)
	return user, nil
}

// ChangePassword replaces the stored hash after verifying currentPassword.
// The write only lands if the record is unchanged since it was read.
func (s *UserService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", username)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", username)

	user, err := s.lookup(ctx, funcName, username)
	if err != nil {
		return err
	}

	if err := s.verify(funcName, user, currentPassword); err != nil {
		return err
	}

	hashedPassword, err := s.Hasher.Hash(newPassword)
	if err != nil {
		s.Logger.Error(MsgFailedToHashPassword, "func", funcName, "user", username, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrPasswordUpdate, MsgFailedToHashPassword, err)
	}

	updatedAt := models.Now()
	if !updatedAt.After(user.UpdatedAt) {
		// the conditional write needs a version distinct from the one read
		updatedAt = user.UpdatedAt.Add(time.Millisecond)
	}

	err = s.UserRepo.UpdatePassword(ctx, username, hashedPassword, user.UpdatedAt, updatedAt)
	if err != nil {
		s.Logger.Error(MsgFailedToUpdate, "func", funcName, "user", username, "error", err)
		return fmt.Errorf("%w: %w", ErrPasswordUpdate, err)
	}

	s.Logger.Info("Password changed successfully", "func", funcName, "user", username)
	return nil
}

func (s *UserService) lookup(ctx context.Context, funcName, username string) (*models.User, error) {
	user, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		s.Logger.Error(MsgRetrievingUser, "func", funcName, "user", username, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLookup, err)
	}
	if user == nil {
		s.Logger.Warn(MsgUserNotFound, "func", funcName, "user", username)
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) verify(funcName string, user *models.User, password string) error {
	err := s.Hasher.Compare(user.Password, password)
	if errors.Is(err, hasher.ErrMismatch) {
		s.Logger.Warn(MsgInvalidPassword, "func", funcName, "user", user.Username)
		return ErrInvalidCredentials
	}
	if err != nil {
		s.Logger.Error(MsgMalformedHash, "func", funcName, "user", user.Username, "error", err)
		return fmt.Errorf("%s: %w", MsgMalformedHash, err)
	}
	return nil
}
