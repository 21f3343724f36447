// internal/middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/javajoker/licensegate/internal/i18n"
	"github.com/javajoker/licensegate/internal/utils"
)

// AdminKeyHeader carries the plaintext admin key on admin routes.
const AdminKeyHeader = "X-Admin-Key"

// SessionChecker reports whether a (user, device) session is still active.
type SessionChecker interface {
	IsValid(ctx context.Context, userID, deviceID string) bool
}

// SessionRequired accepts a request only when its bearer token is valid and
// the session it names is still active in the registrar.
func SessionRequired(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		claims, err := utils.ValidateSessionToken(parts[1])
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		if !sessions.IsValid(c.Request.Context(), claims.UserID, claims.DeviceID) {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthSessionInvalid))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("device_id", claims.DeviceID)
		c.Set("license_key", claims.LicenseKey)
		c.Next()
	}
}

// AdminRequired compares the X-Admin-Key header against a bcrypt hash.
// With an empty hash every admin request is refused.
func AdminRequired(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		if keyHash == "" {
			utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAdminDisabled))
			c.Abort()
			return
		}

		key := c.GetHeader(AdminKeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAdminAccessDenied))
			c.Abort()
			return
		}

		c.Set("admin", true)
		c.Next()
	}
}
