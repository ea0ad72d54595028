package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable classification of a catalog error
type ErrorKind string

const (
	ErrRequestMalformed       ErrorKind = "request_malformed"
	ErrNoSuchUpload           ErrorKind = "no_such_upload"
	ErrUploadNotValid         ErrorKind = "upload_not_valid"
	ErrForbidden              ErrorKind = "forbidden"
	ErrReadOnlyField          ErrorKind = "read_only_field"
	ErrPromotionRejected      ErrorKind = "promotion_rejected"
	ErrInvalidStateTransition ErrorKind = "invalid_state_transition"
	ErrNotFound               ErrorKind = "not_found"
)

// Error is a structured, caller-facing catalog error. Fields is only set
// for field-keyed kinds (ErrReadOnlyField, ErrRequestMalformed) and maps
// a field name to its messages.
type Error struct {
	Kind   ErrorKind           `json:"kind"`
	Detail string              `json:"detail"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return string(e.Kind)
}

// NewError creates a structured error
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NewFieldError creates a field-keyed structured error
func NewFieldError(kind ErrorKind, detail string, fields map[string][]string) *Error {
	return &Error{Kind: kind, Detail: detail, Fields: fields}
}

// IsKind reports whether err is a catalog error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}
