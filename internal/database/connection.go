// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	// Connect to database
	DB, err = gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", dialector.Name()).Info("Database connection established")
	return DB, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

func RunMigrations(db *gorm.DB, tables config.TableConfig) error {
	logrus.Info("Running database migrations...")

	migrations := []struct {
		table string
		model interface{}
	}{
		{tables.Users, &models.User{}},
		{tables.Licenses, &models.License{}},
		{tables.Sessions, &models.Session{}},
		{tables.Audit, &models.AuditLog{}},
	}

	for _, m := range migrations {
		if err := db.Table(m.table).AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", m.table, err)
		}
	}

	// Create indexes
	if err := createIndexes(db, tables); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB, tables config.TableConfig) error {
	indexes := []string{
		// License indexes
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_plan_status ON %[1]s(plan, status)", tables.Licenses),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_expiry ON %[1]s(expiry_date)", tables.Licenses),

		// Session indexes
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_last_active ON %[1]s(last_active_at DESC)", tables.Sessions),

		// Audit indexes
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_created ON %[1]s(created_at DESC)", tables.Audit),
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData provisions a demo user and license for local development.
// It is a no-op when the users table already has rows.
func SeedInitialData(db *gorm.DB, tables config.TableConfig) error {
	logrus.Info("Seeding initial data...")

	var userCount int64
	if err := db.Table(tables.Users).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if userCount > 0 {
		logrus.Info("Users present, skipping seed")
		return nil
	}

	return WithTransaction(db, func(tx *gorm.DB) error {
		user := &models.User{
			MentorID:    models.NormalizeMentorID("42"),
			Email:       "demo@example.com",
			DisplayName: "Demo Trader",
		}
		if err := tx.Table(tables.Users).Create(user).Error; err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}

		expiry := time.Now().AddDate(0, 0, 30)
		license := &models.License{
			Key:        "DEMO-" + uuid.NewString()[:8],
			Plan:       models.LicensePlanStandard,
			Status:     models.LicenseStatusPending,
			ExpiryDate: &expiry,
			OwnerID:    &user.ID,
		}
		if err := tx.Table(tables.Licenses).Create(license).Error; err != nil {
			return fmt.Errorf("failed to create demo license: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"mentor_id": user.MentorID,
			"email":     user.Email,
			"key":       license.Key,
		}).Info("Demo user and license created")
		return nil
	})
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
