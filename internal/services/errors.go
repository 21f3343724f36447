// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/javajoker/licensegate/internal/utils"
)

// Failures surfaced by the license engine. Callers compare with errors.Is.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrLicenseNotFound = errors.New("license not found")
	ErrLicenseRevoked  = errors.New("license has been deactivated")
	ErrLicenseExpired  = errors.New("license has expired")
	ErrDeviceConflict  = errors.New("license is already in use on another device")
	ErrValidation      = errors.New("validation failed")
)

// Wire codes for the failures above.
const (
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeLicenseNotFound = "LICENSE_NOT_FOUND"
	CodeLicenseRevoked  = "LICENSE_REVOKED"
	CodeLicenseExpired  = "LICENSE_EXPIRED"
	CodeDeviceConflict  = "DEVICE_CONFLICT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// ValidationFailure carries per-field problems for a rejected request.
type ValidationFailure struct {
	Fields []utils.ValidationError
	cause  error
}

func (e *ValidationFailure) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Fields[0].Message)
	}
	if len(e.Fields) > 1 {
		return fmt.Sprintf("validation failed: %d fields invalid", len(e.Fields))
	}
	if e.cause != nil {
		return fmt.Sprintf("validation failed: %v", e.cause)
	}
	return "validation failed"
}

func (e *ValidationFailure) Unwrap() error {
	return ErrValidation
}

func validationFailure(err error) error {
	return &ValidationFailure{Fields: utils.GetValidationErrors(err), cause: err}
}

// ErrorCode maps err to its wire code. Unknown errors map to CodeInternal.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrLicenseNotFound):
		return CodeLicenseNotFound
	case errors.Is(err, ErrLicenseRevoked):
		return CodeLicenseRevoked
	case errors.Is(err, ErrLicenseExpired):
		return CodeLicenseExpired
	case errors.Is(err, ErrDeviceConflict):
		return CodeDeviceConflict
	case errors.Is(err, ErrValidation):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// IsTerminal reports failures the user cannot fix by retrying; the UI should
// point them at their mentor or support instead.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrLicenseRevoked) || errors.Is(err, ErrDeviceConflict)
}
