// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var licenseKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,128}$`)

const maxDeviceIDLength = 255

func init() {
	validate = validator.New()
	validate.RegisterValidation("license_key", validateLicenseKey)
	validate.RegisterValidation("device_id", validateDeviceID)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateLicenseKey(fl validator.FieldLevel) bool {
	return licenseKeyPattern.MatchString(fl.Field().String())
}

func validateDeviceID(fl validator.FieldLevel) bool {
	return isDeviceID(fl.Field().String())
}

// isDeviceID accepts any opaque client token up to 255 characters that has
// no whitespace or control characters.
func isDeviceID(id string) bool {
	if utf8.RuneCountInString(id) > maxDeviceIDLength || !utf8.ValidString(id) {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   toSnake(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func toSnake(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "required_without":
		return e.Field() + " is required when " + e.Param() + " is empty"
	case "email":
		return "Invalid email format"
	case "uuid":
		return e.Field() + " must be a UUID"
	case "license_key":
		return "License key must be 4-128 letters, digits, dashes or underscores"
	case "device_id":
		return "Device ID must be at most 255 characters without whitespace or control characters"
	default:
		return e.Field() + " is invalid"
	}
}
