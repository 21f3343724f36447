// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/licensegate/internal/i18n"
	"github.com/javajoker/licensegate/internal/services"
	"github.com/javajoker/licensegate/internal/utils"
)

// respondError writes the envelope for a service failure. Domain failures
// keep their wire code; anything else is logged and reported as internal.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var vf *services.ValidationFailure
	if errors.As(err, &vf) {
		utils.ValidationErrorResponse(c, vf.Fields)
		return
	}

	status, key := errorStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	utils.ErrorResponse(c, status, services.ErrorCode(err), i18n.T(lang, key), nil)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusUnauthorized, i18n.KeyAuthUserNotFound
	case errors.Is(err, services.ErrLicenseNotFound):
		return http.StatusUnauthorized, i18n.KeyLicenseNotFound
	case errors.Is(err, services.ErrLicenseExpired):
		return http.StatusUnauthorized, i18n.KeyLicenseExpired
	case errors.Is(err, services.ErrLicenseRevoked):
		return http.StatusForbidden, i18n.KeyLicenseRevoked
	case errors.Is(err, services.ErrDeviceConflict):
		return http.StatusConflict, i18n.KeyLicenseDeviceInUse
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, i18n.KeyValidationInvalid
	default:
		return http.StatusInternalServerError, i18n.KeyInternalError
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
