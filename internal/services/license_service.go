// internal/services/license_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/database"
	"github.com/javajoker/licensegate/internal/metrics"
	"github.com/javajoker/licensegate/internal/models"
	"github.com/javajoker/licensegate/internal/utils"
)

// NeverExpires is reported in place of an expiry date for lifetime plans.
const NeverExpires = "NEVER"

type LicenseService struct {
	db       *gorm.DB
	tables   config.TableConfig
	cfg      config.LicenseConfig
	sessions *SessionService
	Now      func() time.Time
}

type CheckLicenseRequest struct {
	LicenseKey string `json:"license_key" validate:"required"`
}

// LicenseStatusView is the read-only pre-flight projection of a license.
type LicenseStatusView struct {
	Found         bool       `json:"found"`
	IsActivated   bool       `json:"is_activated"`
	IsDeactivated bool       `json:"is_deactivated"`
	DeviceID      *string    `json:"device_id"`
	Status        string     `json:"status,omitempty"`
	Plan          string     `json:"plan,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date"`
}

type LicenseInfoRequest struct {
	LicenseKey string `json:"license_key" validate:"required_without=UserID"`
	UserID     string `json:"user_id" validate:"omitempty,uuid"`
}

type LicenseInfoView struct {
	Key             string     `json:"key"`
	Status          string     `json:"status"`
	Plan            string     `json:"plan"`
	IsActivated     bool       `json:"is_activated"`
	IsDeactivated   bool       `json:"is_deactivated"`
	ActivationDate  *time.Time `json:"activation_date"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	DaysUntilExpiry *int       `json:"days_until_expiry"`
	IsExpired       bool       `json:"is_expired"`
	LicenseDuration *int       `json:"license_duration"`
	DeviceID        *string    `json:"device_id"`
}

type IssueLicenseRequest struct {
	Key       string             `json:"key,omitempty" validate:"omitempty,license_key"`
	KeyPrefix string             `json:"key_prefix,omitempty" validate:"omitempty,alphanum,max=8"`
	Plan      models.LicensePlan `json:"plan" validate:"required"`
	ValidDays int                `json:"valid_days" validate:"gte=0"`
	OwnerID   *uuid.UUID         `json:"owner_id,omitempty"`
	RobotName string             `json:"robot_name,omitempty"`
	EAName    string             `json:"ea_name,omitempty"`
}

type LicenseSearchParams struct {
	utils.PaginationParams
	Status *models.LicenseStatus `json:"status,omitempty"`
	Plan   *models.LicensePlan   `json:"plan,omitempty"`
}

// bindOutcome says which branch of the device claim took effect.
type bindOutcome int

const (
	outcomeBound bindOutcome = iota + 1
	outcomeRefreshed
)

func NewLicenseService(db *gorm.DB, tables config.TableConfig, cfg config.LicenseConfig, sessions *SessionService) *LicenseService {
	return &LicenseService{
		db:       db,
		tables:   tables,
		cfg:      cfg,
		sessions: sessions,
		Now:      time.Now,
	}
}

func (s *LicenseService) findByKey(tx *gorm.DB, key string) (*models.License, error) {
	var license models.License
	if err := tx.Table(s.tables.Licenses).Where("license_key = ?", key).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &license, nil
}

// GetByKey returns the license record for key.
func (s *LicenseService) GetByKey(ctx context.Context, key string) (*models.License, error) {
	return s.findByKey(s.db.WithContext(ctx), key)
}

// checkUsable applies the revocation, expiry and device rules, in that order,
// to a license presented from deviceID.
func (s *LicenseService) checkUsable(license *models.License, deviceID string, now time.Time) error {
	if license.IsDeactivated {
		return ErrLicenseRevoked
	}
	if license.ExpiredAt(now) {
		return ErrLicenseExpired
	}
	if license.IsBound() && license.BoundDevice() != deviceID {
		return ErrDeviceConflict
	}
	return nil
}

// claimDevice binds the license to deviceID, or refreshes it when it is
// already bound to deviceID. Both branches are single conditional UPDATEs,
// so of two racing claims for different devices exactly one can bind; the
// loser matches neither statement and is reported as a conflict.
func (s *LicenseService) claimDevice(tx *gorm.DB, key, deviceID string, now time.Time) (bindOutcome, error) {
	bind := tx.Table(s.tables.Licenses).
		Where("license_key = ? AND is_deactivated = ?", key, false).
		Where("(is_activated = ? OR device_id IS NULL OR device_id = ?)", false, "").
		Updates(map[string]interface{}{
			"is_activated":    true,
			"device_id":       deviceID,
			"activation_date": now,
			"last_login_at":   now,
			"status":          models.LicenseStatusActive,
			"updated_at":      now,
		})
	if bind.Error != nil {
		return 0, fmt.Errorf("failed to bind license: %w", bind.Error)
	}
	if bind.RowsAffected > 0 {
		return outcomeBound, nil
	}

	refresh := tx.Table(s.tables.Licenses).
		Where("license_key = ? AND is_deactivated = ? AND is_activated = ? AND device_id = ?", key, false, true, deviceID).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		})
	if refresh.Error != nil {
		return 0, fmt.Errorf("failed to refresh license: %w", refresh.Error)
	}
	if refresh.RowsAffected > 0 {
		return outcomeRefreshed, nil
	}

	// Neither matched: somebody changed the row after our read.
	current, err := s.findByKey(tx, key)
	if err != nil {
		return 0, err
	}
	if current.IsDeactivated {
		return 0, ErrLicenseRevoked
	}
	return 0, ErrDeviceConflict
}

// CheckLicense is a side-effect free pre-flight lookup. An unknown key is
// reported as Found=false, not as an error.
func (s *LicenseService) CheckLicense(ctx context.Context, key string) (*LicenseStatusView, error) {
	if strings.TrimSpace(key) == "" {
		return nil, &ValidationFailure{Fields: []utils.ValidationError{{
			Field: "license_key", Tag: "required", Message: "LicenseKey is required",
		}}}
	}

	license, err := s.findByKey(s.db.WithContext(ctx), key)
	if err != nil {
		if errors.Is(err, ErrLicenseNotFound) {
			return &LicenseStatusView{Found: false}, nil
		}
		return nil, err
	}

	return &LicenseStatusView{
		Found:         true,
		IsActivated:   license.IsActivated,
		IsDeactivated: license.IsDeactivated,
		DeviceID:      license.DeviceID,
		Status:        statusOrDefault(license.Status),
		Plan:          planOrDefault(license.Plan),
		ExpiryDate:    license.ExpiryDate,
	}, nil
}

// LicenseInfo resolves a license by key, or by owning user when no key is
// given, and reports its expiry arithmetic.
func (s *LicenseService) LicenseInfo(ctx context.Context, req *LicenseInfoRequest) (*LicenseInfoView, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var license *models.License
	if req.LicenseKey != "" {
		l, err := s.findByKey(db, req.LicenseKey)
		if err != nil {
			return nil, err
		}
		license = l
	} else {
		ownerID, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, validationFailure(err)
		}
		var l models.License
		if err := db.Table(s.tables.Licenses).Where("owner_id = ?", ownerID).
			Order("created_at DESC").First(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrLicenseNotFound
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
		license = &l
	}

	now := s.Now()
	view := &LicenseInfoView{
		Key:            license.Key,
		Status:         statusOrDefault(license.Status),
		Plan:           planOrDefault(license.Plan),
		IsActivated:    license.IsActivated,
		IsDeactivated:  license.IsDeactivated,
		ActivationDate: license.ActivationDate,
		ExpiryDate:     license.ExpiryDate,
		DeviceID:       license.DeviceID,
	}

	if days := daysUntilExpiry(license, now); days != nil {
		view.DaysUntilExpiry = days
	}
	view.IsExpired = license.ExpiredAt(now)
	if !license.Plan.IsLifetime() && license.ActivationDate != nil && license.ExpiryDate != nil {
		duration := ceilDays(license.ExpiryDate.Sub(*license.ActivationDate))
		view.LicenseDuration = &duration
	}

	return view, nil
}

// Deactivate revokes the license permanently and closes its sessions.
// Deactivating an already revoked license succeeds again without writing a
// second audit row.
func (s *LicenseService) Deactivate(ctx context.Context, key string) error {
	now := s.Now()
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		res := tx.Table(s.tables.Licenses).
			Where("license_key = ? AND is_deactivated = ?", key, false).
			Updates(map[string]interface{}{
				"status":         models.LicenseStatusUsed,
				"is_deactivated": true,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to deactivate license: %w", res.Error)
		}
		revoked := res.RowsAffected > 0
		if !revoked {
			var count int64
			if err := tx.Table(s.tables.Licenses).Where("license_key = ?", key).Count(&count).Error; err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if count == 0 {
				return ErrLicenseNotFound
			}
		}

		closed, err := s.sessions.closeForLicense(tx, key, now)
		if err != nil {
			return err
		}
		if !revoked {
			return nil
		}

		return s.writeAudit(tx, &models.AuditLog{
			Action:       models.AuditActionLicenseDeactivated,
			ResourceType: "license",
			ResourceKey:  key,
			Details:      models.JSONB{"sessions_closed": closed},
		})
	})
	if err != nil {
		if errors.Is(err, ErrLicenseNotFound) {
			metrics.RecordDeactivation("not_found")
		} else {
			metrics.RecordDeactivation("error")
		}
		return err
	}

	metrics.RecordDeactivation("ok")
	logrus.WithField("key", utils.MaskKey(key)).Info("License deactivated")
	return nil
}

// IssueLicense creates a new unbound license. Licenses are normally
// provisioned elsewhere; operators use this through licensectl.
func (s *LicenseService) IssueLicense(ctx context.Context, req *IssueLicenseRequest) (*models.License, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	key := req.Key
	if key == "" {
		generated, err := utils.GenerateLicenseKey(req.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to generate license key: %w", err)
		}
		key = generated
	}

	license := &models.License{
		Key:       key,
		Plan:      req.Plan,
		Status:    models.LicenseStatusPending,
		OwnerID:   req.OwnerID,
		RobotName: req.RobotName,
		EAName:    req.EAName,
	}
	if !req.Plan.IsLifetime() && req.ValidDays > 0 {
		expiry := s.Now().AddDate(0, 0, req.ValidDays)
		license.ExpiryDate = &expiry
	}

	if err := s.db.WithContext(ctx).Table(s.tables.Licenses).Create(license).Error; err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}
	return license, nil
}

func (s *LicenseService) ListLicenses(ctx context.Context, params LicenseSearchParams) ([]models.License, int64, error) {
	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Table(s.tables.Licenses).Where("deleted_at IS NULL")
		if params.Status != nil {
			query = query.Where("status = ?", *params.Status)
		}
		if params.Plan != nil {
			query = query.Where("plan = ?", *params.Plan)
		}
		if params.Search != "" {
			query = query.Where("license_key LIKE ?", "%"+params.Search+"%")
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	var licenses []models.License
	query := utils.ApplySort(filtered(), params.PaginationParams, []string{"created_at", "expiry_date", "activation_date", "license_key"})
	query = utils.ApplyPagination(query, params.PaginationParams)
	if err := query.Find(&licenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list licenses: %w", err)
	}

	return licenses, total, nil
}

func (s *LicenseService) writeAudit(tx *gorm.DB, entry *models.AuditLog) error {
	if err := tx.Table(s.tables.Audit).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// daysUntilExpiry is ceil((expiry - now) / 1 day), or nil when the license
// never expires.
func daysUntilExpiry(license *models.License, now time.Time) *int {
	if license.Plan.IsLifetime() || license.ExpiryDate == nil {
		return nil
	}
	days := ceilDays(license.ExpiryDate.Sub(now))
	return &days
}

// expiringSoon is true when 0 < days <= the configured window.
func (s *LicenseService) expiringSoon(days int) bool {
	return days > 0 && days <= s.cfg.ExpiringSoonDays
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func statusOrDefault(status models.LicenseStatus) string {
	if status == "" {
		return "unknown"
	}
	return string(status)
}

func planOrDefault(plan models.LicensePlan) string {
	if plan == "" {
		return string(models.LicensePlanStandard)
	}
	return string(plan)
}

func validateRequest(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return validationFailure(err)
	}
	return nil
}
