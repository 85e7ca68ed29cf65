// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/validation"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// sanitizeLogValue replaces control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			b.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes response with the given status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondSuccess writes a 200 envelope around data.
func respondSuccess(w http.ResponseWriter, data interface{}, start time.Time) {
	respondData(w, http.StatusOK, data, start)
}

// respondCreated writes a 201 envelope around data.
func respondCreated(w http.ResponseWriter, data interface{}, start time.Time) {
	respondData(w, http.StatusCreated, data, start)
}

// respondErrorCode writes an error envelope with an explicit status and code.
func respondErrorCode(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// RespondError writes err in the API error envelope. It satisfies
// auth.ErrorResponder.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err)
}

// respondError maps err to a status and error envelope. Internal errors are
// logged and replaced by a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	apiErr := &models.APIError{Code: apperr.Code(err), Message: apperr.Message(err)}

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		v := verr.ToAPIError()
		apiErr.Message = v.Message
		apiErr.Details = v.Details
	}

	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Str("error", sanitizeLogValue(err.Error())).
			Str("path", r.URL.Path).Msg("API error")
		apiErr.Message = "An internal error occurred"
	} else {
		logging.Ctx(r.Context()).Debug().Str("code", apiErr.Code).
			Str("error", sanitizeLogValue(err.Error())).Msg("API request rejected")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
}

// decodeJSON reads a JSON body into dst. Malformed bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	data, err := io.ReadAll(body)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, err, "request body too large or unreadable")
	}
	if len(data) == 0 {
		return apperr.E(apperr.ErrValidation, "request body is required")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperr.Wrap(apperr.ErrValidation, err, "invalid JSON body")
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getTimeParam parses an RFC 3339 query parameter. An empty value yields the
// zero time.
func getTimeParam(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.ErrValidation, err, "%s must be an RFC 3339 timestamp", key)
	}
	return t, nil
}
