// internal/services/license_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/licensegate/internal/models"
	"github.com/javajoker/licensegate/internal/testutil"
	"github.com/javajoker/licensegate/internal/utils"
)

type LicenseServiceTestSuite struct {
	serviceSuite
}

func (s *LicenseServiceTestSuite) TestCheckLicenseUnknownKey() {
	view, err := s.licenses.CheckLicense(s.ctx, "does-not-exist")
	s.Require().NoError(err)
	s.False(view.Found)
}

func (s *LicenseServiceTestSuite) TestCheckLicenseEmptyKey() {
	_, err := s.licenses.CheckLicense(s.ctx, "  ")
	s.ErrorIs(err, ErrValidation)
}

func (s *LicenseServiceTestSuite) TestCheckLicenseReportsBinding() {
	testutil.CreateLicense(s.T(), s.db, s.tables, "BOUND1", testutil.WithBinding("dev-1", fixedNow))

	view, err := s.licenses.CheckLicense(s.ctx, "BOUND1")
	s.Require().NoError(err)
	s.True(view.Found)
	s.True(view.IsActivated)
	s.False(view.IsDeactivated)
	s.Require().NotNil(view.DeviceID)
	s.Equal("dev-1", *view.DeviceID)

	// read-only
	after := s.reload("BOUND1")
	s.Nil(after.LastLoginAt)
}

func (s *LicenseServiceTestSuite) TestDeactivateIsIdempotent() {
	testutil.CreateLicense(s.T(), s.db, s.tables, "ABC123")

	s.Require().NoError(s.licenses.Deactivate(s.ctx, "ABC123"))
	s.Require().NoError(s.licenses.Deactivate(s.ctx, "ABC123"))

	license := s.reload("ABC123")
	s.True(license.IsDeactivated)
	s.Equal(models.LicenseStatusUsed, license.Status)
	s.Equal(int64(1), s.countAudit(models.AuditActionLicenseDeactivated))
}

func (s *LicenseServiceTestSuite) TestDeactivateUnknownKey() {
	err := s.licenses.Deactivate(s.ctx, "NOPE99")
	s.ErrorIs(err, ErrLicenseNotFound)
	s.Zero(s.countAudit(models.AuditActionLicenseDeactivated))
}

func (s *LicenseServiceTestSuite) TestDeactivateClosesSessions() {
	user := testutil.CreateUser(s.T(), s.db, s.tables, "42", "a@x.com")
	testutil.CreateLicense(s.T(), s.db, s.tables, "ABC123", testutil.WithBinding("dev-1", fixedNow))
	s.Require().NoError(s.sessions.UpsertSession(s.ctx, user.ID, "dev-1", "ABC123"))
	s.Require().True(s.sessions.IsValid(s.ctx, user.ID.String(), "dev-1"))

	s.Require().NoError(s.licenses.Deactivate(s.ctx, "ABC123"))

	s.False(s.sessions.IsValid(s.ctx, user.ID.String(), "dev-1"))
	var count int64
	s.Require().NoError(s.db.Table(s.tables.Sessions).Count(&count).Error)
	s.Equal(int64(1), count)

	// binding fields are left as they were
	license := s.reload("ABC123")
	s.True(license.IsActivated)
	s.Equal("dev-1", license.BoundDevice())
}

func (s *LicenseServiceTestSuite) TestLicenseInfoByKey() {
	activated := fixedNow.AddDate(0, 0, -10)
	testutil.CreateLicense(s.T(), s.db, s.tables, "ABC123",
		testutil.WithBinding("dev-1", activated),
		testutil.WithExpiry(activated.AddDate(0, 0, 30)))

	view, err := s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{LicenseKey: "ABC123"})
	s.Require().NoError(err)
	s.Equal("ABC123", view.Key)
	s.Equal("active", view.Status)
	s.Require().NotNil(view.DaysUntilExpiry)
	s.Equal(20, *view.DaysUntilExpiry)
	s.False(view.IsExpired)
	s.Require().NotNil(view.LicenseDuration)
	s.Equal(30, *view.LicenseDuration)
}

func (s *LicenseServiceTestSuite) TestLicenseInfoByOwner() {
	owner := testutil.CreateUser(s.T(), s.db, s.tables, "42", "a@x.com")
	testutil.CreateLicense(s.T(), s.db, s.tables, "OWNED1",
		testutil.WithOwner(owner.ID),
		testutil.WithExpiry(fixedNow.Add(-36*time.Hour)))

	view, err := s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{UserID: owner.ID.String()})
	s.Require().NoError(err)
	s.Equal("OWNED1", view.Key)
	s.Require().NotNil(view.DaysUntilExpiry)
	s.Equal(-1, *view.DaysUntilExpiry)
	s.True(view.IsExpired)
	s.Nil(view.LicenseDuration)

	_, err = s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{UserID: uuid.NewString()})
	s.ErrorIs(err, ErrLicenseNotFound)
}

func (s *LicenseServiceTestSuite) TestLicenseInfoAgreesWithLoginOnExpiry() {
	testutil.CreateUser(s.T(), s.db, s.tables, "42", "a@x.com")
	testutil.CreateLicense(s.T(), s.db, s.tables, "PAST01", testutil.WithExpiry(fixedNow.Add(-time.Second)))

	_, err := s.auth.Authenticate(s.ctx, s.request("42", "a@x.com", "PAST01", "dev-1"))
	s.Require().ErrorIs(err, ErrLicenseExpired)

	view, err := s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{LicenseKey: "PAST01"})
	s.Require().NoError(err)
	s.Require().NotNil(view.DaysUntilExpiry)
	s.Equal(0, *view.DaysUntilExpiry)
	s.True(view.IsExpired)
}

func (s *LicenseServiceTestSuite) TestLicenseInfoLifetime() {
	testutil.CreateLicense(s.T(), s.db, s.tables, "LIFE01",
		testutil.WithPlan(models.LicensePlanLifetime),
		testutil.WithBinding("dev-1", fixedNow),
		testutil.WithExpiry(fixedNow.AddDate(-1, 0, 0)))

	view, err := s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{LicenseKey: "LIFE01"})
	s.Require().NoError(err)
	s.Nil(view.DaysUntilExpiry)
	s.False(view.IsExpired)
	s.Nil(view.LicenseDuration)
}

func (s *LicenseServiceTestSuite) TestLicenseInfoNeedsSelector() {
	_, err := s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{})
	s.ErrorIs(err, ErrValidation)

	_, err = s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{UserID: "not-a-uuid"})
	s.ErrorIs(err, ErrValidation)

	_, err = s.licenses.LicenseInfo(s.ctx, &LicenseInfoRequest{LicenseKey: "NOPE99"})
	s.ErrorIs(err, ErrLicenseNotFound)
}

func (s *LicenseServiceTestSuite) TestIssueLicense() {
	license, err := s.licenses.IssueLicense(s.ctx, &IssueLicenseRequest{
		KeyPrefix: "QT",
		Plan:      models.LicensePlanStandard,
		ValidDays: 30,
	})
	s.Require().NoError(err)
	s.Regexp(`^QT(-[A-Z2-9]{4}){4}$`, license.Key)
	s.Require().NotNil(license.ExpiryDate)
	s.True(license.ExpiryDate.Equal(fixedNow.AddDate(0, 0, 30)))

	view, err := s.licenses.CheckLicense(s.ctx, license.Key)
	s.Require().NoError(err)
	s.True(view.Found)
	s.False(view.IsActivated)

	lifetime, err := s.licenses.IssueLicense(s.ctx, &IssueLicenseRequest{
		Key:       "LIFE-0001",
		Plan:      models.LicensePlanLifetime,
		ValidDays: 30,
	})
	s.Require().NoError(err)
	s.Nil(lifetime.ExpiryDate)
}

func (s *LicenseServiceTestSuite) TestListLicenses() {
	testutil.CreateLicense(s.T(), s.db, s.tables, "KEY-A")
	testutil.CreateLicense(s.T(), s.db, s.tables, "KEY-B", testutil.WithBinding("dev-1", fixedNow))
	testutil.CreateLicense(s.T(), s.db, s.tables, "KEY-C", testutil.WithPlan(models.LicensePlanLifetime))

	all, total, err := s.licenses.ListLicenses(s.ctx, LicenseSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 2, Sort: "license_key", Order: "asc"},
	})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(all, 2)
	s.Equal("KEY-A", all[0].Key)

	active := models.LicenseStatusActive
	filtered, total, err := s.licenses.ListLicenses(s.ctx, LicenseSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 10, Order: "desc"},
		Status:           &active,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(filtered, 1)
	s.Equal("KEY-B", filtered[0].Key)
}

func TestLicenseServiceSuite(t *testing.T) {
	suite.Run(t, new(LicenseServiceTestSuite))
}

func TestDaysUntilExpiry(t *testing.T) {
	now := fixedNow
	at := func(d time.Duration) *models.License {
		expiry := now.Add(d)
		return &models.License{Plan: models.LicensePlanStandard, ExpiryDate: &expiry}
	}

	cases := []struct {
		name string
		in   *models.License
		want *int
	}{
		{"exactly one day", at(24 * time.Hour), intPtr(1)},
		{"just over one day", at(25 * time.Hour), intPtr(2)},
		{"one second left", at(time.Second), intPtr(1)},
		{"one second past", at(-time.Second), intPtr(0)},
		{"a day and a half past", at(-36 * time.Hour), intPtr(-1)},
		{"no expiry", &models.License{Plan: models.LicensePlanStandard}, nil},
		{"lifetime", func() *models.License { l := at(-time.Hour); l.Plan = models.LicensePlanLifetime; return l }(), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, daysUntilExpiry(tc.in, now))
		})
	}
}

func TestExpiringSoonWindow(t *testing.T) {
	s := &LicenseService{}
	s.cfg.ExpiringSoonDays = 1

	assert.True(t, s.expiringSoon(1))
	assert.False(t, s.expiringSoon(0))
	assert.False(t, s.expiringSoon(2))

	s.cfg.ExpiringSoonDays = 7
	assert.True(t, s.expiringSoon(7))
	assert.False(t, s.expiringSoon(-3))
}

func intPtr(v int) *int { return &v }
