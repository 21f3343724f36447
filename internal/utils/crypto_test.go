// internal/utils/crypto_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLicenseKey(t *testing.T) {
	key, err := GenerateLicenseKey("qt")
	require.NoError(t, err)
	assert.Regexp(t, `^QT(-[A-Z2-9]{4}){4}$`, key)
	assert.NotContainsf(t, key[3:], "O", "ambiguous characters excluded")

	bare, err := GenerateLicenseKey("")
	require.NoError(t, err)
	assert.Len(t, strings.Split(bare, "-"), 4)

	other, err := GenerateLicenseKey("")
	require.NoError(t, err)
	assert.NotEqual(t, bare, other)
}

func TestNewDeviceID(t *testing.T) {
	a, b := NewDeviceID(), NewDeviceID()
	assert.True(t, strings.HasPrefix(a, "dev-"))
	assert.NotEqual(t, a, b)
	assert.True(t, isDeviceID(a))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "ABC1****", MaskKey("ABC123"))
	assert.Equal(t, "****", MaskKey("ABC"))
	assert.Equal(t, "****", MaskKey(""))
}
