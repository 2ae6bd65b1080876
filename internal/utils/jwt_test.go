package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken("secret", 42, "owner", time.Minute, TokenTypeAccess)
	require.NoError(t, err)

	claims, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "owner", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 2*time.Second)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken("secret", 1, "user", time.Minute, TokenTypeAccess)
	require.NoError(t, err)

	_, err = ParseToken("other", tok)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken("secret", 1, "user", -time.Minute, TokenTypeRefresh)
	require.NoError(t, err)

	_, err = ParseToken("secret", tok)
	assert.Error(t, err)
}

func TestGenerateToken_Unique(t *testing.T) {
	a, _ := GenerateToken("secret", 1, "user", time.Hour, TokenTypeRefresh)
	b, _ := GenerateToken("secret", 1, "user", time.Hour, TokenTypeRefresh)
	assert.NotEqual(t, a, b)
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("p@ss")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("p@ss", h))
	assert.False(t, CheckPasswordHash("other", h))
	assert.False(t, CheckPasswordHash("p@ss", ""))

	pw, err := RandomPassword()
	require.NoError(t, err)
	assert.Len(t, pw, 16)
}
