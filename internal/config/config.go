// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Admin       AdminConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Log         LogConfig
	I18n        I18nConfig
	License     LicenseConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	Tables       TableConfig
}

// TableConfig names the tables backing each record kind. Names are fixed at
// startup; nothing queries the database for them.
type TableConfig struct {
	Users    string
	Licenses string
	Sessions string
	Audit    string
}

type JWTConfig struct {
	SecretKey  string
	SessionTTL int // in hours
}

type AdminConfig struct {
	APIKeyHash string
}

type RateLimitConfig struct {
	GeneralRPS     float64
	GeneralBurst   int
	AuthPerMinute  int
	AuthBurst      int
	DisableLimiter bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type I18nConfig struct {
	DefaultLocale string
}

type LicenseConfig struct {
	ExpiringSoonDays int
	DefaultRobotName string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "licensegate"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "licensegate.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
			Tables: TableConfig{
				Users:    getEnv("DB_USERS_TABLE", "users"),
				Licenses: getEnv("DB_LICENSES_TABLE", "license_keys"),
				Sessions: getEnv("DB_SESSIONS_TABLE", "user_sessions"),
				Audit:    getEnv("DB_AUDIT_TABLE", "audit_logs"),
			},
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET", defaultJWTSecret),
			SessionTTL: getEnvAsInt("JWT_SESSION_TTL", 720), // 30 days
		},
		Admin: AdminConfig{
			APIKeyHash: getEnv("ADMIN_API_KEY_HASH", ""),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:     getEnvAsFloat("RATE_LIMIT_GENERAL_RPS", 10),
			GeneralBurst:   getEnvAsInt("RATE_LIMIT_GENERAL_BURST", 20),
			AuthPerMinute:  getEnvAsInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			AuthBurst:      getEnvAsInt("RATE_LIMIT_AUTH_BURST", 5),
			DisableLimiter: getEnvAsBool("RATE_LIMIT_DISABLED", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		License: LicenseConfig{
			ExpiringSoonDays: getEnvAsInt("EXPIRING_SOON_DAYS", 1),
			DefaultRobotName: getEnv("DEFAULT_ROBOT_NAME", "QUICKTRADE PRO"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	t := c.Database.Tables
	if t.Users == "" || t.Licenses == "" || t.Sessions == "" || t.Audit == "" {
		return fmt.Errorf("table names must not be empty")
	}

	if c.JWT.SessionTTL <= 0 {
		return fmt.Errorf("JWT session TTL must be positive")
	}

	if c.License.ExpiringSoonDays < 0 {
		return fmt.Errorf("expiring soon window must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
