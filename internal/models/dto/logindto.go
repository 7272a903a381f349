package dto

type LoginRequestDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequestDTO struct {
	Username        string `json:"username" validate:"required"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	// bcrypt rejects input longer than 72 bytes
	NewPassword string `json:"newPassword" validate:"required,maxbytes=72"`
}
