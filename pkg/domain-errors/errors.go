// Package domainerrors defines the coded errors services return to transport
// layers. Every business condition has its own code so callers can act on it
// without parsing messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the HTTP contract.
type Code string

const (
	CodeValidation             Code = "validation_error"
	CodeAlreadyConfirmed       Code = "already_confirmed"
	CodeHandleTaken            Code = "handle_taken"
	CodeDuplicatePending       Code = "duplicate_pending"
	CodeAlreadyDecided         Code = "already_decided"
	CodeAlreadySeller          Code = "already_seller"
	CodeResubmissionNotAllowed Code = "resubmission_not_allowed"
	CodeNotFound               Code = "not_found"
	CodeNotAuthorized          Code = "not_authorized"
	CodeUnauthenticated        Code = "unauthenticated"
	CodeRateLimited            Code = "rate_limited"
	CodeStoreUnavailable       Code = "store_unavailable"
	CodeBadRequest             Code = "bad_request"
	CodeInternal               Code = "internal_error"
)

// Error is a coded domain error. Field is set for validation failures and
// names the offending input.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation creates a validation error naming the field that failed.
func Validation(field, msg string) error {
	return &Error{Code: CodeValidation, Message: msg, Field: field}
}

// As returns the outermost coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// FieldOf returns the field named by a validation error, if any.
func FieldOf(err error) string {
	if de, ok := As(err); ok {
		return de.Field
	}
	return ""
}

// ToHTTPStatus maps a code to the status written by transport handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeAlreadyConfirmed, CodeHandleTaken, CodeDuplicatePending,
		CodeAlreadyDecided, CodeAlreadySeller, CodeResubmissionNotAllowed:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
