// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
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

// AuthService runs license logins: it resolves the user and license, applies
// the activation rules, binds the device and registers the session.
type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	users    *UserService
	licenses *LicenseService
	sessions *SessionService
}

type AuthenticateRequest struct {
	MentorID   models.MentorID `json:"mentor_id" validate:"required"`
	Email      string          `json:"email" validate:"required"`
	LicenseKey string          `json:"license_key" validate:"required"`
	DeviceID   string          `json:"device_id" validate:"required,device_id"`
}

type AuthUserView struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	MentorID    models.MentorID `json:"mentor_id"`
	DisplayName string          `json:"display_name"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	RobotName   string          `json:"robot_name"`
	EAName      string          `json:"ea_name"`
}

type AuthLicenseView struct {
	Key             string  `json:"key"`
	Status          string  `json:"status"`
	Plan            string  `json:"plan"`
	ExpiryDate      *string `json:"expiry_date"`
	DaysUntilExpiry *int    `json:"days_until_expiry"`
	IsExpiringSoon  bool    `json:"is_expiring_soon"`
	DeviceID        string  `json:"device_id"`
}

// AuthView is what a successful Authenticate returns to the dashboard.
type AuthView struct {
	User    AuthUserView    `json:"user"`
	License AuthLicenseView `json:"license"`
	// NewlyBound is true when this call bound the license to the device.
	NewlyBound bool `json:"newly_bound"`
}

type LoginResponse struct {
	*AuthView
	SessionToken string `json:"session_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config, users *UserService, licenses *LicenseService, sessions *SessionService) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		users:    users,
		licenses: licenses,
		sessions: sessions,
	}
}

// Authenticate validates a login attempt and, on success, binds or refreshes
// the device and upserts the session. Failures are one of the sentinel
// errors in errors.go; no partial writes survive a failure.
func (s *AuthService) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthView, error) {
	view, err := s.authenticate(ctx, req)
	if err != nil {
		metrics.RecordAuth(strings.ToLower(ErrorCode(err)))
		if !errors.Is(err, ErrValidation) {
			logrus.WithFields(logrus.Fields{
				"mentor_id": req.MentorID,
				"key":       utils.MaskKey(req.LicenseKey),
				"device_id": req.DeviceID,
				"reason":    ErrorCode(err),
			}).Warn("License authentication rejected")
		}
		return nil, err
	}

	outcome := metrics.OutcomeRefreshed
	if view.NewlyBound {
		outcome = metrics.OutcomeBound
	}
	metrics.RecordAuth(outcome)
	return view, nil
}

func (s *AuthService) authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthView, error) {
	req.MentorID = models.NormalizeMentorID(req.MentorID.String())
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByMentorAndEmail(ctx, req.MentorID, req.Email)
	if err != nil {
		return nil, err
	}

	license, err := s.licenses.GetByKey(ctx, req.LicenseKey)
	if err != nil {
		return nil, err
	}

	now := s.licenses.Now()
	if err := s.licenses.checkUsable(license, req.DeviceID, now); err != nil {
		return nil, err
	}

	var outcome bindOutcome
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		outcome, err = s.licenses.claimDevice(tx, req.LicenseKey, req.DeviceID, now)
		if err != nil {
			return err
		}

		if outcome == outcomeBound {
			if err := s.licenses.writeAudit(tx, &models.AuditLog{
				UserID:       &user.ID,
				Action:       models.AuditActionLicenseActivated,
				ResourceType: "license",
				ResourceKey:  req.LicenseKey,
				DeviceID:     req.DeviceID,
			}); err != nil {
				return err
			}
		}

		if err := s.sessions.upsert(tx, user.ID, req.DeviceID, req.LicenseKey, now); err != nil {
			return err
		}

		license, err = s.licenses.findByKey(tx, req.LicenseKey)
		return err
	})
	if err != nil {
		return nil, err
	}

	if outcome == outcomeBound {
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"key":       utils.MaskKey(license.Key),
			"device_id": req.DeviceID,
		}).Info("License bound to device")
	}

	return s.buildView(user, license, outcome == outcomeBound, now), nil
}

func (s *AuthService) buildView(user *models.User, license *models.License, newlyBound bool, now time.Time) *AuthView {
	licenseView := AuthLicenseView{
		Key:      license.Key,
		Status:   statusOrDefault(license.Status),
		Plan:     planOrDefault(license.Plan),
		DeviceID: license.BoundDevice(),
	}

	switch {
	case license.Plan.IsLifetime():
		never := NeverExpires
		licenseView.ExpiryDate = &never
	case license.ExpiryDate != nil:
		expiry := license.ExpiryDate.UTC().Format(time.RFC3339)
		licenseView.ExpiryDate = &expiry
	}

	if days := daysUntilExpiry(license, now); days != nil {
		licenseView.DaysUntilExpiry = days
		licenseView.IsExpiringSoon = s.licenses.expiringSoon(*days)
	}

	return &AuthView{
		User: AuthUserView{
			ID:          user.ID,
			Email:       user.Email,
			MentorID:    user.MentorID,
			DisplayName: user.PreferredName(),
			AvatarURL:   user.AvatarURL,
			RobotName:   firstNonEmpty(license.RobotName, user.RobotName, s.cfg.License.DefaultRobotName),
			EAName:      firstNonEmpty(license.EAName, s.cfg.License.DefaultRobotName),
		},
		License:    licenseView,
		NewlyBound: newlyBound,
	}
}

// Login authenticates and issues a session token bound to the device.
func (s *AuthService) Login(ctx context.Context, req *AuthenticateRequest) (*LoginResponse, error) {
	view, err := s.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateSessionToken(view.User.ID, req.DeviceID, view.License.Key, s.cfg.JWT.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return &LoginResponse{
		AuthView:     view,
		SessionToken: token,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.SessionTTL * 3600,
	}, nil
}

// Logout ends the session for the device the token was issued to.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, deviceID string) error {
	return s.sessions.Logout(ctx, userID, deviceID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
