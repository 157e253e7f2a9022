package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestIssueAndVerify(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.Issue("user-123", "alice@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := NewTokenManager(testSecret, -time.Minute)

	token, err := m.Issue("user-123", "alice@example.com", "user")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	other := NewTokenManager("a-completely-different-secret", time.Hour)

	token, err := m.Issue("user-123", "alice@example.com", "admin")
	require.NoError(t, err)

	claims, err := other.Verify(token)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	claims, err := m.Verify("not.a.jwt")
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestExpiry(t *testing.T) {
	m := NewTokenManager(testSecret, 5*24*time.Hour)
	assert.Equal(t, 5*24*time.Hour, m.Expiry())
}
