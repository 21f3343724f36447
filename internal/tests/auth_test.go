// internal/tests/auth_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/i18n"
	"github.com/javajoker/licensegate/internal/middleware"
	"github.com/javajoker/licensegate/internal/models"
	"github.com/javajoker/licensegate/internal/router"
	"github.com/javajoker/licensegate/internal/testutil"
)

const adminKey = "admin-test-key"

type AuthTestSuite struct {
	suite.Suite
	cfg    *config.Config
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
	cancel context.CancelFunc
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (suite *AuthTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("en"))
}

func (suite *AuthTestSuite) SetupTest() {
	suite.cfg = testutil.Config()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	suite.Require().NoError(err)
	suite.cfg.Admin.APIKeyHash = string(hash)

	suite.db = testutil.OpenDB(suite.T(), suite.cfg)
	tables := suite.cfg.Database.Tables
	suite.user = testutil.CreateUser(suite.T(), suite.db, tables, "42", "a@x.com")
	testutil.CreateLicense(suite.T(), suite.db, tables, "ABC123", testutil.WithExpiry(time.Now().AddDate(0, 0, 30)))

	var ctx context.Context
	ctx, suite.cancel = context.WithCancel(context.Background())
	suite.router = router.Initialize(ctx, router.NewServices(suite.db, suite.cfg), suite.cfg)
}

func (suite *AuthTestSuite) TearDownTest() {
	suite.cancel()
}

func (suite *AuthTestSuite) do(method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &response)
	}
	return w, response
}

func (suite *AuthTestSuite) login(deviceID string) (*httptest.ResponseRecorder, envelope) {
	return suite.do(http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"mentor_id":   42,
		"email":       "a@x.com",
		"license_key": "ABC123",
		"device_id":   deviceID,
	}, nil)
}

func (suite *AuthTestSuite) token(resp envelope) string {
	var data struct {
		Token string `json:"token"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &data))
	suite.Require().NotEmpty(data.Token)
	return data.Token
}

func (suite *AuthTestSuite) TestUserLogin() {
	w, resp := suite.login("dev-1")

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), resp.Success)

	var data struct {
		User struct {
			Email     string `json:"email"`
			RobotName string `json:"robot_name"`
		} `json:"user"`
		License struct {
			DeviceID        string `json:"device_id"`
			DaysUntilExpiry *int   `json:"days_until_expiry"`
		} `json:"license"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &data))
	assert.Equal(suite.T(), "a@x.com", data.User.Email)
	assert.Equal(suite.T(), "QUICKTRADE PRO", data.User.RobotName)
	assert.Equal(suite.T(), "dev-1", data.License.DeviceID)
	suite.Require().NotNil(data.License.DaysUntilExpiry)
	assert.Equal(suite.T(), 30, *data.License.DaysUntilExpiry)
}

func (suite *AuthTestSuite) TestLoginFailuresMapToStatus() {
	_, _ = suite.login("dev-1")

	w, resp := suite.login("dev-2")
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	suite.Require().NotNil(resp.Error)
	assert.Equal(suite.T(), "DEVICE_CONFLICT", resp.Error.Code)
	assert.Contains(suite.T(), resp.Error.Message, "another device")

	w, resp = suite.do(http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"mentor_id": "42", "email": "nobody@x.com", "license_key": "ABC123", "device_id": "dev-1",
	}, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "USER_NOT_FOUND", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"mentor_id": 42, "email": "a@x.com", "license_key": "ABC123",
	}, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", resp.Error.Code)
}

func (suite *AuthTestSuite) TestLocalizedErrorMessage() {
	_, _ = suite.login("dev-1")

	w, resp := suite.do(http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"mentor_id": 42, "email": "a@x.com", "license_key": "ABC123", "device_id": "dev-2",
	}, map[string]string{"Accept-Language": "zh-TW"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	suite.Require().NotNil(resp.Error)
	assert.Equal(suite.T(), i18n.T("zh_TW", i18n.KeyLicenseDeviceInUse), resp.Error.Message)
}

func (suite *AuthTestSuite) TestSessionLifecycle() {
	_, resp := suite.login("dev-1")
	bearer := map[string]string{"Authorization": "Bearer " + suite.token(resp)}

	w, _ := suite.do(http.MethodGet, "/v1/users/me", nil, bearer)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, resp = suite.do(http.MethodPost, "/v1/sessions/check", map[string]string{
		"user_id": suite.user.ID.String(), "device_id": "dev-1",
	}, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"valid":true}`, string(resp.Data))

	w, _ = suite.do(http.MethodPost, "/v1/auth/logout", nil, bearer)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/users/me", nil, bearer)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	_, resp = suite.do(http.MethodPost, "/v1/sessions/check", map[string]string{
		"user_id": suite.user.ID.String(), "device_id": "dev-1",
	}, nil)
	assert.JSONEq(suite.T(), `{"valid":false}`, string(resp.Data))
}

func (suite *AuthTestSuite) TestCheckLicense() {
	w, resp := suite.do(http.MethodPost, "/v1/licenses/check", map[string]string{"license_key": "does-not-exist"}, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"found":false`)

	_, _ = suite.login("dev-1")
	_, resp = suite.do(http.MethodPost, "/v1/licenses/check", map[string]string{"license_key": "ABC123"}, nil)
	assert.Contains(suite.T(), string(resp.Data), `"device_id":"dev-1"`)
}

func (suite *AuthTestSuite) TestLicenseInfo() {
	w, resp := suite.do(http.MethodPost, "/v1/licenses/info", map[string]string{"license_key": "ABC123"}, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(resp.Data), `"is_expired":false`)

	w, _ = suite.do(http.MethodPost, "/v1/licenses/info", map[string]string{"license_key": "NOPE99"}, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/licenses/info", map[string]string{}, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *AuthTestSuite) TestAdminDeactivate() {
	_, resp := suite.login("dev-1")
	bearer := map[string]string{"Authorization": "Bearer " + suite.token(resp)}
	admin := map[string]string{middleware.AdminKeyHeader: adminKey}

	w, _ := suite.do(http.MethodPost, "/v1/admin/licenses/ABC123/deactivate", nil, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/admin/licenses/ABC123/deactivate", nil, admin)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/admin/licenses/ABC123/deactivate", nil, admin)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/admin/licenses/NOPE99/deactivate", nil, admin)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	// the open session is closed with the license
	w, _ = suite.do(http.MethodGet, "/v1/users/me", nil, bearer)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, resp = suite.login("dev-1")
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "LICENSE_REVOKED", resp.Error.Code)
}

func (suite *AuthTestSuite) TestAdminListLicenses() {
	w, resp := suite.do(http.MethodGet, "/v1/admin/licenses?limit=10", nil, map[string]string{middleware.AdminKeyHeader: adminKey})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))
	assert.Contains(suite.T(), string(resp.Data), `"key":"ABC123"`)
}

func (suite *AuthTestSuite) TestHealthAndMetrics() {
	w, _ := suite.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	_, _ = suite.login("dev-1")
	w, _ = suite.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "licensegate_auth_attempts_total")
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
