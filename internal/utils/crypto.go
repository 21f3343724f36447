// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const licenseKeyCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomFromCharset(charset string, length int) (string, error) {
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// GenerateLicenseKey returns a key like "QT-ABCD-EFGH-JKLM-NPQR". Ambiguous
// characters (0, O, 1, I) are excluded so keys survive being read aloud.
func GenerateLicenseKey(prefix string) (string, error) {
	groups := make([]string, 0, 5)
	if prefix != "" {
		groups = append(groups, strings.ToUpper(prefix))
	}
	for i := 0; i < 4; i++ {
		group, err := randomFromCharset(licenseKeyCharset, 4)
		if err != nil {
			return "", err
		}
		groups = append(groups, group)
	}
	return strings.Join(groups, "-"), nil
}

// NewDeviceID returns a fresh installation identifier. Clients generate one
// once and persist it; the server never invents device ids during login.
func NewDeviceID() string {
	return "dev-" + uuid.NewString()
}

// MaskKey hides all but the first four characters of a secret for logging.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
