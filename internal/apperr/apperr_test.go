// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_IsKind(t *testing.T) {
	t.Parallel()

	err := E(ErrNotFound, "device %q", "lobby-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatal("did not expect ErrConflict")
	}

	wrapped := fmt.Errorf("heartbeat: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("kind must survive fmt.Errorf wrapping")
	}
	if got := Message(wrapped); got != `device "lobby-1"` {
		t.Errorf("Message = %q", got)
	}
}

func TestWrap_UnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := Wrap(ErrNetworkUnavailable, cause, "GET assigned playlists")

	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Error("expected ErrNetworkUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	want := "network unavailable: GET assigned playlists: dial tcp: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestHTTPStatusAndCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{E(ErrNotFound, "x"), http.StatusNotFound, "NOT_FOUND"},
		{E(ErrConflict, "x"), http.StatusConflict, "CONFLICT"},
		{E(ErrInvalidCredential, "x"), http.StatusUnauthorized, "INVALID_CREDENTIAL"},
		{E(ErrValidation, "x"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{E(ErrNetworkUnavailable, "x"), http.StatusServiceUnavailable, "NETWORK_UNAVAILABLE"},
		{E(ErrPartialFetch, "x"), http.StatusBadGateway, "PARTIAL_FETCH"},
		{errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.status)
		}
		if got := Code(tt.err); got != tt.code {
			t.Errorf("Code(%v) = %s, want %s", tt.err, got, tt.code)
		}
	}
}
