package userservice

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/interfaces/mocks"
	"github.com/haguru/schooladmin/internal/models"
	"github.com/haguru/schooladmin/internal/userrepo/constants"
	"github.com/haguru/schooladmin/pkg/hasher"
	"github.com/haguru/schooladmin/pkg/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(repo interfaces.UserRepository, h interfaces.PasswordHasher) *UserService {
	if h == nil {
		h = hasher.NewBcryptHasher(bcrypt.MinCost)
	}
	return NewUserService(repo, h, zerolog.NewLogger("test", io.Discard))
}

func storedUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hashed, err := hasher.NewBcryptHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	user := models.NewUser(username, hashed)
	user.ID = "id-" + username
	return user
}

func TestUserService_AuthenticateUser(t *testing.T) {
	ctx := context.Background()
	alice := storedUser(t, "alice", "correct")

	tests := []struct {
		name     string
		username string
		password string
		repoUser *models.User
		repoErr  error
		wantErr  error
		anyErr   bool
	}{
		{name: "valid credentials", username: "alice", password: "correct", repoUser: alice},
		{name: "wrong password", username: "alice", password: "wrong", repoUser: alice, wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: "x", wantErr: ErrUserNotFound},
		{name: "directory failure", username: "alice", password: "correct", repoErr: errors.New("db down"), wantErr: ErrDirectoryLookup},
		{name: "ambiguous match", username: "alice", password: "correct", repoErr: interfaces.ErrMultipleDocuments, wantErr: ErrDirectoryLookup},
		{name: "malformed stored hash", username: "alice", password: "correct", repoUser: &models.User{Username: "alice", Password: "plaintext"}, anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockUserRepository(t)
			repo.On("GetUserByUsername", ctx, tt.username).Return(tt.repoUser, tt.repoErr)

			got, err := newService(repo, nil).AuthenticateUser(ctx, tt.username, tt.password)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrInvalidCredentials)
				assert.NotErrorIs(t, err, ErrUserNotFound)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.Equal(t, alice.ID, got.ID)
			}
		})
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores a verifiable hash with a newer version", func(t *testing.T) {
		alice := storedUser(t, "alice", "old")
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "alice").Return(alice, nil)

		var storedHash string
		var nextVersion time.Time
		repo.On("UpdatePassword", ctx, "alice", mock.AnythingOfType("string"), alice.UpdatedAt, mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				storedHash = args.String(2)
				nextVersion = args.Get(4).(time.Time)
			}).
			Return(nil)

		require.NoError(t, newService(repo, nil).ChangePassword(ctx, "alice", "old", "new"))

		h := hasher.NewBcryptHasher(bcrypt.MinCost)
		assert.NoError(t, h.Compare(storedHash, "new"))
		assert.ErrorIs(t, h.Compare(storedHash, "old"), hasher.ErrMismatch)
		assert.True(t, nextVersion.After(alice.UpdatedAt))
	})

	t.Run("version is bumped when the clock has not advanced", func(t *testing.T) {
		alice := storedUser(t, "alice", "old")
		alice.UpdatedAt = time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)

		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "alice").Return(alice, nil)
		repo.On("UpdatePassword", ctx, "alice", mock.Anything, alice.UpdatedAt, alice.UpdatedAt.Add(time.Millisecond)).Return(nil)

		assert.NoError(t, newService(repo, nil).ChangePassword(ctx, "alice", "old", "new"))
	})

	t.Run("wrong current password never writes", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "alice").Return(storedUser(t, "alice", "old"), nil)

		err := newService(repo, nil).ChangePassword(ctx, "alice", "guess", "new")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "ghost").Return(nil, nil)

		err := newService(repo, nil).ChangePassword(ctx, "ghost", "old", "new")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("lookup failure", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "alice").Return(nil, errors.New("timeout"))

		err := newService(repo, nil).ChangePassword(ctx, "alice", "old", "new")
		assert.ErrorIs(t, err, ErrDirectoryLookup)
	})

	t.Run("concurrent change loses", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "alice").Return(storedUser(t, "alice", "old"), nil)
		repo.On("UpdatePassword", ctx, "alice", mock.Anything, mock.Anything, mock.Anything).Return(interfaces.ErrConcurrentUpdate)

		err := newService(repo, nil).ChangePassword(ctx, "alice", "old", "new")
		assert.ErrorIs(t, err, ErrPasswordUpdate)
		assert.ErrorIs(t, err, interfaces.ErrConcurrentUpdate)
	})

	t.Run("hashing failure never writes", func(t *testing.T) {
		alice := storedUser(t, "alice", "old")
		repo := mocks.NewMockUserRepository(t)
		repo.On("GetUserByUsername", ctx, "alice").Return(alice, nil)

		h := mocks.NewMockPasswordHasher(t)
		h.On("Compare", alice.Password, "old").Return(nil)
		h.On("Hash", "new").Return("", errors.New("entropy exhausted"))

		err := newService(repo, h).ChangePassword(ctx, "alice", "old", "new")
		assert.ErrorIs(t, err, ErrPasswordUpdate)
		repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserService_RegisterUser(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes before storing", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("AddUser", ctx, mock.MatchedBy(func(u models.User) bool {
			return u.Username == "bob" && u.Role == "teacher" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret")) == nil
		})).Return("new-id", nil)

		user := models.NewUser("bob", "")
		user.Role = "teacher"
		id, err := newService(repo, nil).RegisterUser(ctx, *user, "secret")
		require.NoError(t, err)
		assert.Equal(t, "new-id", id)
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := mocks.NewMockUserRepository(t)
		repo.On("AddUser", ctx, mock.Anything).Return("", constants.ErrUserAlreadyExists)

		_, err := newService(repo, nil).RegisterUser(ctx, *models.NewUser("bob", ""), "secret")
		assert.ErrorIs(t, err, constants.ErrUserAlreadyExists)
	})
}
