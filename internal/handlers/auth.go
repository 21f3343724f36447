// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/licensegate/internal/i18n"
	"github.com/javajoker/licensegate/internal/services"
	"github.com/javajoker/licensegate/internal/utils"
)

type AuthHandler struct {
	authService    *services.AuthService
	sessionService *services.SessionService
}

func NewAuthHandler(authService *services.AuthService, sessionService *services.SessionService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
	}
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AuthenticateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{
		"message":    i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"user":       resp.User,
		"license":    resp.License,
		"token":      resp.SessionToken,
		"token_type": resp.TokenType,
		"expires_in": resp.ExpiresIn,
	}
	if resp.License.IsExpiringSoon && resp.License.DaysUntilExpiry != nil {
		data["notice"] = i18n.T(lang, i18n.KeyLicenseExpiringSoon, *resp.License.DaysUntilExpiry)
	}
	utils.SuccessResponse(c, data)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
		return
	}
	deviceID, _ := utils.GetDeviceIDFromContext(c)

	if err := h.authService.Logout(c.Request.Context(), userID, deviceID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess),
	})
}

// POST /sessions/check
func (h *AuthHandler) CheckSession(c *gin.Context) {
	var req services.CheckSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"valid": h.sessionService.IsValid(c.Request.Context(), req.UserID, req.DeviceID),
	})
}
