package interfaces

import (
	"context"

	"github.com/haguru/schooladmin/internal/models"
)

type UserService interface {
	RegisterUser(ctx context.Context, user models.User, password string) (string, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
}
