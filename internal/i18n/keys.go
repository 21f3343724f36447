// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired       = "auth.required"
	KeyAuthInvalidToken   = "auth.invalid_token"
	KeyAuthSessionInvalid = "auth.session_invalid"
	KeyAuthLoginSuccess   = "auth.login_success"
	KeyAuthLogoutSuccess  = "auth.logout_success"
	KeyAuthUserNotFound   = "auth.user_not_found"

	// Licenses
	KeyLicenseNotFound      = "license.not_found"
	KeyLicenseRevoked       = "license.revoked"
	KeyLicenseExpired       = "license.expired"
	KeyLicenseDeviceInUse   = "license.device_conflict"
	KeyLicenseDeactivated   = "license.deactivated"
	KeyLicenseExpiringSoon  = "license.expiring_soon"
	KeyLicenseInfoNotFound  = "license.info_not_found"
	KeyLicenseCheckNotFound = "license.check_not_found"

	// Users
	KeyUserNotFound = "user.not_found"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"
	KeyAdminDisabled     = "admin.disabled"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Rate limiting
	KeyRateLimited = "rate.limited"

	// Generic
	KeyInternalError = "error.internal"
)
