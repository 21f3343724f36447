// internal/handlers/license.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/licensegate/internal/i18n"
	"github.com/javajoker/licensegate/internal/models"
	"github.com/javajoker/licensegate/internal/services"
	"github.com/javajoker/licensegate/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
	}
}

// POST /licenses/check
// An unknown key is a normal answer: 200 with found=false.
func (h *LicenseHandler) CheckLicense(c *gin.Context) {
	var req services.CheckLicenseRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.licenseService.CheckLicense(c.Request.Context(), req.LicenseKey)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// POST /licenses/info
func (h *LicenseHandler) LicenseInfo(c *gin.Context) {
	var req services.LicenseInfoRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.licenseService.LicenseInfo(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			utils.NotFoundResponse(c, i18n.KeyLicenseInfoNotFound)
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// POST /admin/licenses/:key/deactivate
func (h *LicenseHandler) Deactivate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	key := c.Param("key")

	if err := h.licenseService.Deactivate(c.Request.Context(), key); err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			utils.NotFoundResponse(c, i18n.KeyLicenseNotFound)
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseDeactivated),
		"key":     key,
	})
}

// GET /admin/licenses
func (h *LicenseHandler) ListLicenses(c *gin.Context) {
	params := services.LicenseSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}
	if status := c.Query("status"); status != "" {
		s := models.LicenseStatus(status)
		params.Status = &s
	}
	if plan := c.Query("plan"); plan != "" {
		p := models.LicensePlan(plan)
		params.Plan = &p
	}

	licenses, total, err := h.licenseService.ListLicenses(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(licenses, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}
