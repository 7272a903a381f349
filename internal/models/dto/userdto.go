package dto

import (
	"time"

	"github.com/haguru/schooladmin/internal/models"
)

// UserDTO is the user record as returned to clients. It deliberately has no
// password field.
type UserDTO struct {
	ID         string                 `json:"id"`
	Username   string                 `json:"username"`
	Email      string                 `json:"email,omitempty"`
	FullName   string                 `json:"full_name,omitempty"`
	Role       string                 `json:"role,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// NewUserDTO strips the credential from user.
func NewUserDTO(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       user.Role,
		Attributes: user.Attributes,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}
