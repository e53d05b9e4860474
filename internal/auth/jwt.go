// Package auth issues and validates back-office tokens and hashes
// passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/pkg/middleware"
)

const issuer = "storefront"

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Claims are the claims of an access token.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims of a refresh token.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

var errWrongTokenType = errors.New("wrong token type")

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewJWTManager creates a JWT manager.
func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// IssuePair signs a fresh access and refresh token for a user.
func (m *JWTManager) IssuePair(userID, email, role string) (*TokenPair, error) {
	now := m.now()
	expires := now.Add(m.accessExpiry)

	access, err := m.sign(&Claims{
		UserID:           userID,
		Email:            email,
		Role:             role,
		TokenType:        tokenAccess,
		RegisteredClaims: registered(userID, now, expires),
	})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := m.sign(&RefreshClaims{
		UserID:           userID,
		TokenType:        tokenRefresh,
		RegisteredClaims: registered(userID, now, now.Add(m.refreshExpiry)),
	})
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires, TokenType: "Bearer"}, nil
}

// ValidateAccessToken parses an access token and returns its claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.TokenType != tokenAccess {
		return nil, fmt.Errorf("parse access token: %w", errWrongTokenType)
	}
	return claims, nil
}

// ValidateRefreshToken parses a refresh token and returns its claims.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse refresh token: %w", err)
	}
	if claims.TokenType != tokenRefresh {
		return nil, fmt.Errorf("parse refresh token: %w", errWrongTokenType)
	}
	return claims, nil
}

// Validator adapts the manager to middleware.Auth.
func (m *JWTManager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		c, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: c.UserID, Email: c.Email, Role: c.Role}, nil
	}
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}

func registered(subject string, now, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}
