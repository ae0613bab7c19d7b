package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ezauth/pkg/errors"
)

func newTestManager(t *testing.T) *JWTManager {
	manager, err := NewJWTManager("test-secret-key", time.Hour, 7*24*time.Hour)
	require.NoError(t, err)
	return manager
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	_, err := NewJWTManager("", time.Hour, time.Hour)
	assert.ErrorIs(t, err, errors.ErrNoSigningSecret)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateAccessToken(42, "admin@acme.com", 7, "STANDARD", "ADMIN,VIEWER")
	require.NoError(t, err)

	claims, err := manager.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "admin@acme.com", claims.Email)
	assert.Equal(t, "7", claims.TenantID)
	assert.Equal(t, "STANDARD", claims.UserType)
	assert.Equal(t, "ADMIN,VIEWER", claims.Roles)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
}

func TestRefreshTokenCarriesMinimalClaims(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateRefreshToken(42)
	require.NoError(t, err)

	claims, err := manager.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.TenantID)
	assert.Empty(t, claims.Roles)
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	manager := newTestManager(t)
	other, err := NewJWTManager("another-secret", time.Hour, time.Hour)
	require.NoError(t, err)

	token, err := manager.GenerateAccessToken(1, "a@b.com", 1, "STANDARD", "")
	require.NoError(t, err)

	_, err = other.Decode(token)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestDecodeDoesNotRejectExpiredToken(t *testing.T) {
	// 负有效期直接生成已过期令牌
	manager, err := NewJWTManager("test-secret-key", -time.Hour, -time.Hour)
	require.NoError(t, err)

	token, err := manager.GenerateAccessToken(1, "a@b.com", 1, "STANDARD", "")
	require.NoError(t, err)

	// 过期不影响解码，只影响有效性判断
	claims, err := manager.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)

	assert.True(t, manager.IsExpired(token))
	assert.False(t, manager.ValidateToken(token))
}

func TestIsExpiredFailClosed(t *testing.T) {
	manager := newTestManager(t)

	assert.True(t, manager.IsExpired("not-a-token"))
	assert.True(t, manager.IsExpired(""))
}

func TestTokenTypeChecks(t *testing.T) {
	manager := newTestManager(t)

	access, err := manager.GenerateAccessToken(1, "a@b.com", 1, "STANDARD", "")
	require.NoError(t, err)
	refresh, err := manager.GenerateRefreshToken(1)
	require.NoError(t, err)

	assert.True(t, manager.IsAccessToken(access))
	assert.False(t, manager.IsRefreshToken(access))
	assert.True(t, manager.IsRefreshToken(refresh))
	assert.False(t, manager.IsAccessToken(refresh))

	// 解析失败一律false，不抛错
	assert.False(t, manager.IsAccessToken("garbage"))
	assert.False(t, manager.IsRefreshToken("garbage"))
}

func TestClaimExtractors(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateAccessToken(42, "admin@acme.com", 7, "STANDARD", "ADMIN,VIEWER")
	require.NoError(t, err)

	userID, err := manager.GetUserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	tenantID, err := manager.GetTenantIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), tenantID)

	email, err := manager.GetEmailFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@acme.com", email)

	userType, err := manager.GetUserTypeFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", userType)

	roles, err := manager.GetRolesFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN,VIEWER", roles)
}

func TestClaimExtractorsOnMalformedToken(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.GetUserIDFromToken("garbage")
	assert.ErrorIs(t, err, errors.ErrClaimExtraction)

	_, err = manager.GetEmailFromToken("garbage")
	assert.ErrorIs(t, err, errors.ErrClaimExtraction)
}

func TestTenantClaimMissingOnRefreshToken(t *testing.T) {
	manager := newTestManager(t)

	refresh, err := manager.GenerateRefreshToken(42)
	require.NoError(t, err)

	_, err = manager.GetTenantIDFromToken(refresh)
	assert.ErrorIs(t, err, errors.ErrClaimExtraction)

	_, err = manager.GetEmailFromToken(refresh)
	assert.ErrorIs(t, err, errors.ErrClaimExtraction)
}
