// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package apperr defines the error taxonomy shared by the registry and the
// player. Every error returned across a package boundary wraps exactly one of
// the sentinels below so callers can branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds.
var (
	// ErrNotFound is returned for an unknown device, playlist or media id.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for a duplicate device registration.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredential is returned for a bad, expired, replayed or
	// wrong-purpose registration token.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrValidation is returned for missing required fields or empty item lists.
	ErrValidation = errors.New("validation failed")

	// ErrNetworkUnavailable is returned by the player for any failed outbound call.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrPartialFetch is returned by the media cache when a download fails.
	ErrPartialFetch = errors.New("partial fetch failure")
)

// Error decorates a sentinel kind with a human-readable message and an
// optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// E builds an *Error of the given kind.
func E(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind error, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap exposes the cause so errors.Is/As can see through to it.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Message returns the message of the outermost *Error in err's chain, or
// err.Error() when there is none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPartialFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code maps an error to the API error code string.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInvalidCredential):
		return "INVALID_CREDENTIAL"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNetworkUnavailable):
		return "NETWORK_UNAVAILABLE"
	case errors.Is(err, ErrPartialFetch):
		return "PARTIAL_FETCH"
	default:
		return "INTERNAL_ERROR"
	}
}
