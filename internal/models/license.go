// internal/models/license.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// License is a shared-secret key that can be bound to at most one device.
type License struct {
	BaseModel
	Key            string        `json:"key" gorm:"column:license_key;size:128;not null;uniqueIndex"`
	Plan           LicensePlan   `json:"plan" gorm:"type:varchar(32);default:'standard'"`
	Status         LicenseStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	IsActivated    bool          `json:"is_activated" gorm:"not null;default:false"`
	IsDeactivated  bool          `json:"is_deactivated" gorm:"not null;default:false"`
	DeviceID       *string       `json:"device_id" gorm:"size:255;index"`
	ExpiryDate     *time.Time    `json:"expiry_date"`
	ActivationDate *time.Time    `json:"activation_date"`
	LastLoginAt    *time.Time    `json:"last_login_at"`
	OwnerID        *uuid.UUID    `json:"owner_id,omitempty" gorm:"type:uuid;index"`
	RobotName      string        `json:"robot_name,omitempty" gorm:"size:255"`
	EAName         string        `json:"ea_name,omitempty" gorm:"size:255"`
}

// BoundDevice returns the bound device id, or "" when unbound.
func (l *License) BoundDevice() string {
	if l.DeviceID == nil {
		return ""
	}
	return *l.DeviceID
}

// IsBound reports whether the license is activated on some device.
func (l *License) IsBound() bool {
	return l.IsActivated && l.BoundDevice() != ""
}

// ExpiredAt reports whether the license is past its expiry at now. Lifetime
// licenses and licenses without an expiry never expire.
func (l *License) ExpiredAt(now time.Time) bool {
	if l.Plan.IsLifetime() || l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(now)
}
