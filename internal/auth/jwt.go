// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/config"
)

// RegistrationPurpose is the purpose claim every registration token carries.
const RegistrationPurpose = "device-registration"

// DefaultRegistrationTTL applies when the configuration leaves the TTL unset.
const DefaultRegistrationTTL = time.Hour

// RegistrationClaims are the claims of a device registration token.
type RegistrationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// OperatorClaims are the claims accepted on operator routes.
type OperatorClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates HS256 tokens with a shared secret.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a token manager from the security configuration.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required but was empty")
	}
	ttl := cfg.RegistrationTokenTTL
	if ttl <= 0 {
		ttl = DefaultRegistrationTTL
	}
	return &JWTManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// RegistrationTTL returns how long issued registration tokens stay valid.
func (m *JWTManager) RegistrationTTL() time.Duration {
	return m.ttl
}

// IssueRegistrationToken mints a registration token on behalf of operator.
func (m *JWTManager) IssueRegistrationToken(operator string) (string, *RegistrationClaims, error) {
	now := m.now()
	claims := &RegistrationClaims{
		Purpose: RegistrationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := m.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseRegistrationToken validates signature, expiry and purpose. It does not
// consult the replay tracker; see Registrar.Redeem.
func (m *JWTManager) ParseRegistrationToken(tokenString string) (*RegistrationClaims, error) {
	claims := &RegistrationClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidCredential, err, "registration token rejected")
	}
	if claims.Purpose != RegistrationPurpose {
		return nil, apperr.E(apperr.ErrInvalidCredential, "token purpose %q is not %s", claims.Purpose, RegistrationPurpose)
	}
	if claims.ID == "" {
		return nil, apperr.E(apperr.ErrInvalidCredential, "registration token has no jti")
	}
	return claims, nil
}

// GenerateOperatorToken mints an operator token. The registry never serves
// this; it exists for tooling and tests.
func (m *JWTManager) GenerateOperatorToken(username, role string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &OperatorClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return m.sign(claims)
}

// ValidateOperatorToken validates an operator token. Registration tokens are
// rejected even though they share the signing secret.
func (m *JWTManager) ValidateOperatorToken(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidCredential, err, "operator token rejected")
	}
	if claims.Username == "" {
		return nil, apperr.E(apperr.ErrInvalidCredential, "operator token has no username")
	}
	return claims, nil
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token claims")
	}
	return nil
}
