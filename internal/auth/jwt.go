package auth

import (
	"errors"
	"time"

	"github.com/example/bazaar/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = apperr.New(apperr.KindUnauthorized, "invalid token")
	ErrExpiredToken = apperr.New(apperr.KindUnauthorized, "token has expired")
)

const (
	issuer           = "bazaar"
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims carries the caller identity. TokenType keeps a refresh token from
// being accepted where an access token is expected.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 tokens.
type JWTService struct {
	secretKey          []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

func NewJWTService(secretKey string, accessExpiry, refreshExpiry time.Duration) *JWTService {
	return &JWTService{
		secretKey:          []byte(secretKey),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

func (s *JWTService) GenerateAccessToken(userID, email, role string) (string, time.Time, error) {
	return s.sign(Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: tokenTypeAccess,
	}, s.accessTokenExpiry)
}

func (s *JWTService) GenerateRefreshToken(userID string) (string, time.Time, error) {
	return s.sign(Claims{
		UserID:    userID,
		TokenType: tokenTypeRefresh,
	}, s.refreshTokenExpiry)
}

func (s *JWTService) sign(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken returns the user ID the refresh token was issued to.
func (s *JWTService) ValidateRefreshToken(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *JWTService) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) AccessTokenExpiry() time.Duration { return s.accessTokenExpiry }

func (s *JWTService) RefreshTokenExpiry() time.Duration { return s.refreshTokenExpiry }
