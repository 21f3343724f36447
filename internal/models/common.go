// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key on the client so the same schema
// works on postgres and the embedded SQLite driver.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// MentorID identifies the mentor a user signed up under. Clients send it
// either as a JSON number or as a string; both normalize to the same value.
type MentorID string

func (m *MentorID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = NormalizeMentorID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("mentor id must be a number or string: %w", err)
	}
	*m = NormalizeMentorID(n.String())
	return nil
}

func (m MentorID) String() string {
	return string(m)
}

// NormalizeMentorID trims the value and canonicalizes integers, so "042",
// " 42" and 42 all resolve to "42".
func NormalizeMentorID(raw string) MentorID {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return MentorID(strconv.FormatInt(n, 10))
	}
	return MentorID(raw)
}

// Enums
type LicensePlan string

const (
	LicensePlanStandard LicensePlan = "standard"
	LicensePlanLifetime LicensePlan = "lifetime"
)

// IsLifetime reports whether the plan is exempt from expiry.
func (p LicensePlan) IsLifetime() bool {
	return p == LicensePlanLifetime
}

// LicenseStatus is a display label. IsActivated and IsDeactivated on the
// License are the authoritative flags.
type LicenseStatus string

const (
	LicenseStatusPending LicenseStatus = "pending"
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusUsed    LicenseStatus = "used"
)

// Audit actions
const (
	AuditActionLicenseActivated   = "license.activated"
	AuditActionLicenseDeactivated = "license.deactivated"
)
