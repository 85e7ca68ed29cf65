// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the *OperatorClaims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// Auth modes.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

// ErrorResponder writes an error response. The API layer supplies its JSON
// envelope writer; the default is http.Error.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// Middleware guards operator routes.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
	respond    ErrorResponder
}

// NewMiddleware creates the operator authentication middleware.
func NewMiddleware(jwtManager *JWTManager, authMode string, respond ErrorResponder) *Middleware {
	if respond == nil {
		respond = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		}
	}
	return &Middleware{jwtManager: jwtManager, authMode: authMode, respond: respond}
}

// RequireOperator rejects requests without a valid operator bearer token.
func (m *Middleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == AuthModeNone {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			m.respond(w, r, apperr.E(apperr.ErrInvalidCredential, "authorization header required"))
			return
		}

		claims, err := m.jwtManager.ValidateOperatorToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Operator token rejected")
			m.respond(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetClaims returns the operator claims stored by RequireOperator.
func GetClaims(ctx context.Context) (*OperatorClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*OperatorClaims)
	return claims, ok
}

// OperatorName returns the authenticated operator, or "anonymous" when auth
// is disabled.
func OperatorName(ctx context.Context) string {
	if claims, ok := GetClaims(ctx); ok {
		return claims.Username
	}
	return "anonymous"
}
