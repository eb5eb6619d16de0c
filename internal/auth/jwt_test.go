package auth

import (
	"testing"
	"time"

	"github.com/example/bazaar/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func newTestJWTService() *JWTService {
	return NewJWTService(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateAccessToken("user-456", "rider@example.com", "driver")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, "rider@example.com", claims.Email)
	assert.Equal(t, "driver", claims.Role)
	assert.Equal(t, "user-456", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService(testSecret, time.Millisecond, time.Hour)

	token, _, err := service.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	other := NewJWTService("another-secret-key-for-testing-purposes", 15*time.Minute, time.Hour)
	token, _, err := other.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)

	claims, err := newTestJWTService().ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_NoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           "user-123",
		Role:             "admin",
		TokenType:        tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := newTestJWTService().ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_ForeignIssuer(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:    "user-123",
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RefreshTokenRoundTrip(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateRefreshToken("user-789")
	require.NoError(t, err)
	assert.True(t, expiresAt.Before(time.Now().Add(8*24*time.Hour)))

	userID, err := service.ValidateRefreshToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-789", userID)
}

func TestJWTService_ValidateRefreshToken_Expired(t *testing.T) {
	service := NewJWTService(testSecret, 15*time.Minute, time.Millisecond)

	token, _, err := service.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	userID, err := service.ValidateRefreshToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, userID)
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	service := newTestJWTService()

	refreshToken, _, err := service.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	accessToken, _, err := service.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ValidateRefreshToken(accessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Expiry(t *testing.T) {
	service := NewJWTService(testSecret, 30*time.Minute, 14*24*time.Hour)

	assert.Equal(t, 30*time.Minute, service.AccessTokenExpiry())
	assert.Equal(t, 14*24*time.Hour, service.RefreshTokenExpiry())
}
