// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
)

func TestRegistrar_RedeemOnce(t *testing.T) {
	r := NewRegistrar(newTestManager(t), NewMemoryJTITracker())
	ctx := context.Background()

	token, expiresAt, err := r.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt = %v, want future", expiresAt)
	}

	claims, err := r.Redeem(ctx, token, "screen-1")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if claims.Purpose != RegistrationPurpose {
		t.Errorf("Purpose = %q", claims.Purpose)
	}

	_, err = r.Redeem(ctx, token, "screen-2")
	if !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("second Redeem() error = %v, want ErrInvalidCredential", err)
	}
	if !errors.Is(err, ErrJTIAlreadyUsed) {
		t.Errorf("second Redeem() error = %v, want ErrJTIAlreadyUsed in chain", err)
	}
}

func TestRegistrar_RedeemInvalid(t *testing.T) {
	r := NewRegistrar(newTestManager(t), NewMemoryJTITracker())
	_, err := r.Redeem(context.Background(), "bogus", "screen-1")
	if !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("Redeem() error = %v, want ErrInvalidCredential", err)
	}
}

func TestRegistrar_TrackerClosed(t *testing.T) {
	tracker := NewMemoryJTITracker()
	r := NewRegistrar(newTestManager(t), tracker)
	token, _, err := r.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	_ = tracker.Close()

	_, err = r.Redeem(context.Background(), token, "screen-1")
	if err == nil || errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("Redeem() error = %v, want internal store error", err)
	}
}

func TestRegistrar_VerifyIgnoresRedemption(t *testing.T) {
	r := NewRegistrar(newTestManager(t), NewMemoryJTITracker())
	ctx := context.Background()

	token, _, err := r.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := r.Verify(token); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := r.Redeem(ctx, token, "screen-1"); err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if _, err := r.Verify(token); err != nil {
		t.Errorf("Verify() after Redeem error = %v, want nil", err)
	}
	if _, err := r.Redeem(ctx, token, "screen-2"); !errors.Is(err, ErrJTIAlreadyUsed) {
		t.Errorf("Redeem() after Redeem error = %v, want ErrJTIAlreadyUsed", err)
	}

	if _, err := r.Verify("bogus"); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("Verify(bogus) error = %v, want ErrInvalidCredential", err)
	}
}
