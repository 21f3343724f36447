// internal/testutil/testutil.go
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/database"
	"github.com/javajoker/licensegate/internal/models"
)

// Config returns a configuration suitable for tests: an in-memory SQLite
// database private to the caller and no rate limiting.
func Config() *config.Config {
	return &config.Config{
		Environment: "test",
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			LogLevel:     "silent",
			Tables: config.TableConfig{
				Users:    "users",
				Licenses: "license_keys",
				Sessions: "user_sessions",
				Audit:    "audit_logs",
			},
		},
		JWT: config.JWTConfig{
			SecretKey:  "test-secret",
			SessionTTL: 24,
		},
		RateLimit: config.RateLimitConfig{
			DisableLimiter: true,
		},
		I18n:    config.I18nConfig{DefaultLocale: "en"},
		License: config.LicenseConfig{ExpiringSoonDays: 1, DefaultRobotName: "QUICKTRADE PRO"},
	}
}

// OpenDB opens and migrates the database described by cfg. The connection
// is closed when the test ends.
func OpenDB(t testing.TB, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := database.Initialize(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, cfg.Database.Tables))

	t.Cleanup(func() { database.Close(db) })
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, tables config.TableConfig, mentorID, email string) *models.User {
	t.Helper()

	user := &models.User{
		MentorID: models.NormalizeMentorID(mentorID),
		Email:    email,
		Name:     "Test User",
	}
	require.NoError(t, db.Table(tables.Users).Create(user).Error)
	return user
}

// LicenseOption adjusts a license before it is inserted.
type LicenseOption func(*models.License)

func WithPlan(plan models.LicensePlan) LicenseOption {
	return func(l *models.License) { l.Plan = plan }
}

func WithExpiry(expiry time.Time) LicenseOption {
	return func(l *models.License) { l.ExpiryDate = &expiry }
}

func WithOwner(id uuid.UUID) LicenseOption {
	return func(l *models.License) { l.OwnerID = &id }
}

func WithBinding(deviceID string, activatedAt time.Time) LicenseOption {
	return func(l *models.License) {
		l.IsActivated = true
		l.DeviceID = &deviceID
		l.ActivationDate = &activatedAt
		l.Status = models.LicenseStatusActive
	}
}

func WithNames(robot, ea string) LicenseOption {
	return func(l *models.License) {
		l.RobotName = robot
		l.EAName = ea
	}
}

func CreateLicense(t testing.TB, db *gorm.DB, tables config.TableConfig, key string, opts ...LicenseOption) *models.License {
	t.Helper()

	license := &models.License{
		Key:    key,
		Plan:   models.LicensePlanStandard,
		Status: models.LicenseStatusPending,
	}
	for _, opt := range opts {
		opt(license)
	}
	require.NoError(t, db.Table(tables.Licenses).Create(license).Error)
	return license
}
