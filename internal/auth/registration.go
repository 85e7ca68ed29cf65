// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/metrics"
)

// Registrar issues and redeems registration tokens.
type Registrar struct {
	jwt     *JWTManager
	tracker JTITracker
}

// NewRegistrar creates a Registrar.
func NewRegistrar(jwtManager *JWTManager, tracker JTITracker) *Registrar {
	return &Registrar{jwt: jwtManager, tracker: tracker}
}

// Issue mints a registration token for operator and returns it with its expiry.
func (r *Registrar) Issue(operator string) (string, time.Time, error) {
	token, claims, err := r.jwt.IssueRegistrationToken(operator)
	if err != nil {
		return "", time.Time{}, err
	}
	metrics.RegistrationTokens.WithLabelValues("issued").Inc()
	return token, claims.ExpiresAt.Time, nil
}

// Verify checks the token's signature, purpose and expiry without
// consulting the jti tracker. Single use is enforced by Redeem.
func (r *Registrar) Verify(token string) (*RegistrationClaims, error) {
	claims, err := r.jwt.ParseRegistrationToken(token)
	if err != nil {
		metrics.RegistrationTokens.WithLabelValues("rejected").Inc()
		return nil, err
	}
	return claims, nil
}

// Redeem validates token and consumes its jti so it cannot be used again.
// Every rejection wraps apperr.ErrInvalidCredential.
func (r *Registrar) Redeem(ctx context.Context, token, deviceID string) (*RegistrationClaims, error) {
	claims, err := r.jwt.ParseRegistrationToken(token)
	if err != nil {
		metrics.RegistrationTokens.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// Keep the jti only as long as the token could still be presented.
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		ttl = time.Second
	}

	err = r.tracker.CheckAndStore(ctx, &JTIEntry{JTI: claims.ID, DeviceID: deviceID}, ttl)
	if errors.Is(err, ErrJTIAlreadyUsed) {
		return nil, apperr.Wrap(apperr.ErrInvalidCredential, err, "registration token already redeemed")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record registration token: %w", err)
	}

	metrics.RegistrationTokens.WithLabelValues("redeemed").Inc()
	return claims, nil
}
