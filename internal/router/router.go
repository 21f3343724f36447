// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/handlers"
	"github.com/javajoker/licensegate/internal/middleware"
	"github.com/javajoker/licensegate/internal/services"
	"github.com/javajoker/licensegate/internal/utils"
)

// Services bundles the domain services the routes are served by.
type Services struct {
	Users    *services.UserService
	Licenses *services.LicenseService
	Sessions *services.SessionService
	Auth     *services.AuthService
}

// NewServices wires the service graph over db.
func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	tables := cfg.Database.Tables
	users := services.NewUserService(db, tables)
	sessions := services.NewSessionService(db, tables)
	licenses := services.NewLicenseService(db, tables, cfg.License, sessions)

	return &Services{
		Users:    users,
		Licenses: licenses,
		Sessions: sessions,
		Auth:     services.NewAuthService(db, cfg, users, licenses, sessions),
	}
}

// Initialize builds the engine. Background work started here (rate limiter
// eviction) stops when ctx is done.
func Initialize(ctx context.Context, svc *Services, cfg *config.Config) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Sessions)
	licenseHandler := handlers.NewLicenseHandler(svc.Licenses)
	userHandler := handlers.NewUserHandler(svc.Users)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	authLimit := func(c *gin.Context) { c.Next() }
	if !cfg.RateLimit.DisableLimiter {
		general := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.GeneralRPS), cfg.RateLimit.GeneralBurst)
		auth := middleware.NewRateLimiter(perMinute(cfg.RateLimit.AuthPerMinute), cfg.RateLimit.AuthBurst)
		go general.Run(ctx)
		go auth.Run(ctx)

		r.Use(general.Middleware())
		authLimit = auth.Middleware()
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionRequired := middleware.SessionRequired(svc.Sessions)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authLimit, authHandler.Login)
			auth.POST("/logout", sessionRequired, authHandler.Logout)
		}

		v1.POST("/sessions/check", authHandler.CheckSession)

		licenses := v1.Group("/licenses")
		licenses.Use(authLimit)
		{
			licenses.POST("/check", licenseHandler.CheckLicense)
			licenses.POST("/info", licenseHandler.LicenseInfo)
		}

		users := v1.Group("/users")
		users.Use(sessionRequired)
		{
			users.GET("/me", userHandler.Me)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminRequired(cfg.Admin.APIKeyHash))
		{
			admin.GET("/licenses", licenseHandler.ListLicenses)
			admin.POST("/licenses/:key/deactivate", licenseHandler.Deactivate)
		}
	}

	return r
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}
