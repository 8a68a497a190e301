package utils

import (
	"fmt"
	"strings"

	"loyalty-backend/linking"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Phone numbers outside this many digits are rejected by the "phone" tag.
const (
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

// RegisterValidators adds the custom binding tags to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("phone", validatePhone)
}

// validatePhone accepts any formatting as long as the digit count is plausible.
func validatePhone(fl validator.FieldLevel) bool {
	n := len(linking.NormalizePhone(fl.Field().String()))
	return n >= MinPhoneDigits && n <= MaxPhoneDigits
}

// SanitizeValidationError takes a validator error and returns a user-friendly message
// without leaking internal Go struct names.
func SanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return "Invalid request body"
	}

	var messages []string
	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "phone":
			messages = append(messages, fmt.Sprintf("%s must be a phone number with %d to %d digits", field, MinPhoneDigits, MaxPhoneDigits))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}

	if len(messages) == 0 {
		return "Invalid request body"
	}

	return strings.Join(messages, "; ")
}

// RegisterBindingValidators adds the custom tags to gin's binding validator.
func RegisterBindingValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return RegisterValidators(v)
}
