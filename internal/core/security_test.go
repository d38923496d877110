// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("pw", "$bcrypt$nope")
	assert.Error(t, err)
}

func TestVerifyPasswordTimingSafeWithoutHash(t *testing.T) {
	ok, newHash, err := VerifyPasswordTimingSafe("whatever", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, newHash)
}

func TestTokenHashRoundTrip(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)

	hash := HashToken(token)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashToken(token))
	assert.NotEqual(t, hash, HashToken(token+"x"))
}

func TestGenerateHexToken(t *testing.T) {
	a, err := GenerateHexToken(16)
	require.NoError(t, err)
	b, err := GenerateHexToken(16)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
