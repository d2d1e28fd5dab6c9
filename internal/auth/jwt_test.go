package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	m := NewJWTManager("test-secret", "stage-portal-backend", time.Hour)

	token, err := m.GenerateAccessToken("uid-1", "alice", "admin", []string{"registration:review", "email:send"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, []string{"registration:review", "email:send"}, claims.Permissions)
	assert.Equal(t, "stage-portal-backend", claims.Issuer)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", "", 0)
	token, err := m.GenerateAccessToken("uid-1", "alice", "admin", nil)
	require.NoError(t, err)

	other := NewJWTManager("secret-b", "", 0)
	_, err = other.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	m := NewJWTManager("secret", "", time.Nanosecond)
	token, err := m.GenerateAccessToken("uid-1", "alice", "admin", nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = m.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)
}
