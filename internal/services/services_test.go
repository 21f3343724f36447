// internal/services/services_test.go
package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/models"
	"github.com/javajoker/licensegate/internal/testutil"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// serviceSuite gives every test a fresh database and a clock pinned to
// fixedNow.
type serviceSuite struct {
	suite.Suite
	ctx      context.Context
	cfg      *config.Config
	db       *gorm.DB
	tables   config.TableConfig
	users    *UserService
	licenses *LicenseService
	sessions *SessionService
	auth     *AuthService
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = testutil.Config()
	s.db = testutil.OpenDB(s.T(), s.cfg)
	s.tables = s.cfg.Database.Tables

	s.users = NewUserService(s.db, s.tables)
	s.sessions = NewSessionService(s.db, s.tables)
	s.licenses = NewLicenseService(s.db, s.tables, s.cfg.License, s.sessions)
	s.auth = NewAuthService(s.db, s.cfg, s.users, s.licenses, s.sessions)

	s.setNow(fixedNow)
}

func (s *serviceSuite) setNow(now time.Time) {
	clock := func() time.Time { return now }
	s.licenses.Now = clock
	s.sessions.Now = clock
}

func (s *serviceSuite) request(mentorID, email, key, deviceID string) *AuthenticateRequest {
	return &AuthenticateRequest{
		MentorID:   models.MentorID(mentorID),
		Email:      email,
		LicenseKey: key,
		DeviceID:   deviceID,
	}
}

func (s *serviceSuite) reload(key string) *models.License {
	license, err := s.licenses.GetByKey(s.ctx, key)
	s.Require().NoError(err)
	return license
}

func (s *serviceSuite) countAudit(action string) int64 {
	var count int64
	s.Require().NoError(s.db.Table(s.tables.Audit).Where("action = ?", action).Count(&count).Error)
	return count
}
