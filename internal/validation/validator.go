// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package validation validates API request structs with go-playground/validator v10.
//
// A single validator instance is shared process-wide. Field names in errors
// are taken from json tags so messages match the request body. Two custom
// tags are registered:
//
//   - hhmm: a wall-clock "HH:MM" time as accepted by schedule.ParseClock
//   - deviceid: 1-128 characters from [A-Za-z0-9._:-]
//
// Example:
//
//	type assignRequest struct {
//	    PlaylistIDs []string `json:"playlistIds" validate:"required,min=1,dive,required"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return apperr.Wrap(apperr.ErrValidation, verr, "invalid request")
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/marquee/internal/schedule"
)

// ErrorCode is the API error code for every validation failure.
const ErrorCode = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one field.
type FieldError struct {
	field   string
	tag     string
	value   interface{}
	message string
}

// Field is the json name of the failing field, with an index for slice elements.
func (e FieldError) Field() string { return e.field }

// Tag is the rule that failed.
func (e FieldError) Tag() string { return e.tag }

func (e FieldError) Error() string { return e.message }

// RequestValidationError collects every FieldError of one request.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.errors))
	for i, e := range ve.errors {
		msgs[i] = e.message
	}
	return strings.Join(msgs, "; ")
}

// APIError mirrors models.APIError without importing models.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError renders the failures for an error envelope. One failure
// reports its field directly; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.errors) {
	case 0:
		return &APIError{Code: ErrorCode, Message: "Validation failed"}
	case 1:
		e := ve.errors[0]
		return &APIError{
			Code:    ErrorCode,
			Message: e.message,
			Details: map[string]interface{}{"field": e.field, "tag": e.tag, "value": e.value},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	msgs := make([]string, len(ve.errors))
	for i, e := range ve.errors {
		fields[i] = map[string]interface{}{"field": e.field, "tag": e.tag, "message": e.message}
		msgs[i] = e.field + ": " + e.message
	}
	return &APIError{
		Code:    ErrorCode,
		Message: strings.Join(msgs, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		// Registration only fails on a programming error (empty tag or nil func).
		if err := validate.RegisterValidation("hhmm", validateClock); err != nil {
			panic(err)
		}
		if err := validate.RegisterValidation("deviceid", validateDeviceID); err != nil {
			panic(err)
		}
	})
	return validate
}

// ValidateStruct validates s and returns nil or the collected failures.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []FieldError{{field: "request", tag: "invalid", message: err.Error()}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			value:   fe.Value(),
			message: message(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

var fixedMessages = map[string]string{
	"required": "%s is required",
	"hhmm":     "%s must be a time of day in HH:MM format",
	"deviceid": "%s must be 1-128 characters of letters, digits, '.', '_', ':' or '-'",
	"url":      "%s must be a valid URL",
	"uuid":     "%s must be a valid UUID",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func message(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()
	if tmpl, ok := fixedMessages[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramMessages[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

func validateClock(fl validator.FieldLevel) bool {
	_, err := schedule.ParseClock(fl.Field().String())
	return err == nil
}

func validateDeviceID(fl validator.FieldLevel) bool {
	return deviceIDPattern.MatchString(fl.Field().String())
}

// jsonFieldName reports the json name of a struct field, falling back to the Go name.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
