package dto

import (
	"strings"
	"testing"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangePasswordRequestDTO_NewPasswordBytes(t *testing.T) {
	validator := structValidator.New()
	require.NoError(t, RegisterValidations(validator))

	tests := []struct {
		name        string
		newPassword string
		wantErr     bool
	}{
		{"ascii at limit", strings.Repeat("a", 72), false},
		{"ascii over limit", strings.Repeat("a", 73), true},
		{"multibyte under rune limit but over byte limit", strings.Repeat("é", 40), true},
		{"multibyte at byte limit", strings.Repeat("é", 36), false},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Struct(&ChangePasswordRequestDTO{
				Username:        "alice",
				CurrentPassword: "old",
				NewPassword:     tt.newPassword,
			})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var fieldErrs structValidator.ValidationErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Equal(t, "NewPassword", fieldErrs[0].Field())
		})
	}
}
