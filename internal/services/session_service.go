// internal/services/session_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/metrics"
	"github.com/javajoker/licensegate/internal/models"
)

// SessionService records which (user, device) pairs are currently
// authorized. Sessions are never deleted, only marked inactive.
type SessionService struct {
	db     *gorm.DB
	tables config.TableConfig
	Now    func() time.Time
}

type CheckSessionRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	DeviceID string `json:"device_id" validate:"required"`
}

func NewSessionService(db *gorm.DB, tables config.TableConfig) *SessionService {
	return &SessionService{
		db:     db,
		tables: tables,
		Now:    time.Now,
	}
}

// UpsertSession creates or overwrites the session for (userID, deviceID)
// and marks it active.
func (s *SessionService) UpsertSession(ctx context.Context, userID uuid.UUID, deviceID, licenseKey string) error {
	return s.upsert(s.db.WithContext(ctx), userID, deviceID, licenseKey, s.Now())
}

func (s *SessionService) upsert(tx *gorm.DB, userID uuid.UUID, deviceID, licenseKey string, now time.Time) error {
	session := &models.Session{
		UserID:       userID,
		DeviceID:     deviceID,
		LicenseKey:   licenseKey,
		LastActiveAt: now,
		IsActive:     true,
	}

	err := tx.Table(s.tables.Sessions).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"license_key", "last_active_at", "is_active", "updated_at"}),
	}).Create(session).Error
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// IsValid reports whether an active session exists for (userID, deviceID)
// and refreshes its last activity on a hit. Lookup failures are reported as
// false; a missing session is a normal negative answer.
func (s *SessionService) IsValid(ctx context.Context, userID, deviceID string) bool {
	valid := s.touch(ctx, userID, deviceID)
	metrics.RecordSessionCheck(valid)
	return valid
}

func (s *SessionService) touch(ctx context.Context, userID, deviceID string) bool {
	uid, err := uuid.Parse(userID)
	if err != nil || deviceID == "" {
		return false
	}

	now := s.Now()
	res := s.db.WithContext(ctx).Table(s.tables.Sessions).
		Where("user_id = ? AND device_id = ? AND is_active = ?", uid, deviceID, true).
		Updates(map[string]interface{}{
			"last_active_at": now,
			"updated_at":     now,
		})
	if res.Error != nil {
		logrus.WithError(res.Error).WithField("user_id", userID).Warn("Session lookup failed")
		return false
	}
	return res.RowsAffected > 0
}

// Logout marks the session inactive. Unknown sessions are ignored.
func (s *SessionService) Logout(ctx context.Context, userID uuid.UUID, deviceID string) error {
	now := s.Now()
	err := s.db.WithContext(ctx).Table(s.tables.Sessions).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// closeForLicense deactivates every session opened with licenseKey.
func (s *SessionService) closeForLicense(tx *gorm.DB, licenseKey string, now time.Time) (int64, error) {
	res := tx.Table(s.tables.Sessions).
		Where("license_key = ? AND is_active = ?", licenseKey, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to close sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
