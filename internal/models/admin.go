// internal/models/admin.go
package models

import (
	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceKey  string     `json:"resource_key" gorm:"size:128;index"`
	DeviceID     string     `json:"device_id,omitempty" gorm:"size:255"`
	Details      JSONB      `json:"details" gorm:"type:jsonb"`
}
