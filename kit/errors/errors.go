// Package errors defines the error taxonomy shared by the backset
// services and transports.
//
// Errors carry a machine-readable Code for automated handling, a
// human-readable Msg, and optionally an Op and a wrapped Err forming a
// logical stack trace. Validation errors additionally carry a
// per-field error map.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error codes. Transports map these to protocol status codes.
const (
	EInternal            = "internal error"
	ENotFound            = "not found"
	EConflict            = "conflict"             // uniqueness violation
	EInvalid             = "invalid"              // validation failed
	EUnprocessableEntity = "unprocessable entity" // request body could not be decoded
)

// FieldError is a single failed validation rule on one field.
type FieldError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// FieldErrors maps a field name to the list of rules it failed.
type FieldErrors map[string][]FieldError

// Add appends a failed rule for the named field.
func (f FieldErrors) Add(field string, e FieldError) {
	f[field] = append(f[field], e)
}

// Error is the error struct of backset.
//
// To create a simple error:
//
//	&Error{Code: ENotFound}
//
// To show an error with an unpredictable value, add the value in Msg:
//
//	&Error{
//	    Code: EConflict,
//	    Msg:  fmt.Sprintf("tenant with name %q already exists", name),
//	}
//
// To show an error wrapped with another error:
//
//	&Error{Code: EInternal, Err: err}
type Error struct {
	Code   string
	Msg    string
	Op     string
	Err    error
	Fields FieldErrors
}

// Error implements the error interface by writing out the recursive messages.
func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

// Unwrap exposes the wrapped error to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound returns the error raised when a resource lookup or guard
// fails, e.g. NotFound("tenant", "id", tid).
func NotFound(resource, attribute, value string) *Error {
	return &Error{
		Code: ENotFound,
		Msg:  fmt.Sprintf("%s with %s %q not found", resource, attribute, value),
	}
}

// AlreadyExists returns the error raised on a uniqueness violation,
// whether caught by a pre-check or translated from a storage constraint
// violation.
func AlreadyExists(resource, attribute, value string) *Error {
	return &Error{
		Code: EConflict,
		Msg:  fmt.Sprintf("%s with %s %q already exists", resource, attribute, value),
	}
}

// Validation returns an EInvalid error carrying per-field errors.
func Validation(fields FieldErrors) *Error {
	return &Error{
		Code:   EInvalid,
		Msg:    "Validation error",
		Fields: fields,
	}
}

// ErrorCode returns the code of the root error, if available; otherwise
// returns EInternal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return EInternal
	}

	if e.Code != "" {
		return e.Code
	}

	if e.Err != nil {
		return ErrorCode(e.Err)
	}

	return EInternal
}

// ErrorMessage returns the human-readable message of the error, if
// available. Otherwise returns a generic error message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return "An internal error has occurred."
	}

	if e.Msg != "" {
		return e.Msg
	}

	if e.Err != nil {
		return ErrorMessage(e.Err)
	}

	return "An internal error has occurred."
}

// ErrorFields returns the per-field validation errors of the root
// error, or nil when it carries none.
func ErrorFields(err error) FieldErrors {
	e, ok := err.(*Error)
	if !ok {
		return nil
	}
	return e.Fields
}

// errEncode is a JSON encoding helper needed to handle the recursive
// stack of errors.
type errEncode struct {
	Code   string      `json:"code"`
	Msg    string      `json:"message,omitempty"`
	Op     string      `json:"op,omitempty"`
	Err    interface{} `json:"error,omitempty"`
	Fields FieldErrors `json:"field_errors,omitempty"`
}

// MarshalJSON recursively marshals the stack of Err.
func (e *Error) MarshalJSON() ([]byte, error) {
	ee := errEncode{
		Code:   e.Code,
		Msg:    e.Msg,
		Op:     e.Op,
		Fields: e.Fields,
	}
	if e.Err != nil {
		if inner, ok := e.Err.(*Error); ok {
			ee.Err = inner
		} else {
			ee.Err = e.Err.Error()
		}
	}
	return json.Marshal(ee)
}
