package dto

import (
	"reflect"
	"strconv"

	structValidator "github.com/go-playground/validator/v10"
)

// TagMaxBytes bounds a string by its length in bytes. The builtin max tag
// counts runes.
const TagMaxBytes = "maxbytes"

// RegisterValidations adds the custom tags used by the request DTOs.
func RegisterValidations(validator *structValidator.Validate) error {
	return validator.RegisterValidation(TagMaxBytes, maxBytes)
}

func maxBytes(fl structValidator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil || fl.Field().Kind() != reflect.String {
		return false
	}
	return len(fl.Field().String()) <= limit
}
