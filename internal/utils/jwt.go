// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// SessionClaims bind a token to the (user, device) session it was issued for.
type SessionClaims struct {
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	LicenseKey string `json:"license_key"`
	jwt.RegisteredClaims
}

const tokenIssuer = "licensegate"

var jwtSecret = []byte("your-secret-key-change-in-production")

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func GenerateSessionToken(userID uuid.UUID, deviceID, licenseKey string, ttlHours int) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:     userID.String(),
		DeviceID:   deviceID,
		LicenseKey: licenseKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		if claims.Issuer != tokenIssuer || claims.DeviceID == "" {
			return nil, errors.New("invalid token")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
