// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Session asserts that a (user, device) pair is currently authorized.
type Session struct {
	BaseModel
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_session_user_device,priority:1"`
	DeviceID     string    `json:"device_id" gorm:"size:255;not null;uniqueIndex:idx_session_user_device,priority:2"`
	LicenseKey   string    `json:"license_key" gorm:"size:128;not null;index"`
	LastActiveAt time.Time `json:"last_active_at"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
}
