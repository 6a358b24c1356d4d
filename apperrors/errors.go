package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. The kind decides the HTTP status and
// whether the caller can fix the problem by changing its input.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindUnsupportedMediaType Kind = "unsupported_media_type"
	KindMissingFile          Kind = "missing_file"
	KindEmptyUpload          Kind = "empty_upload"
	KindTooManyFiles         Kind = "too_many_files"
	KindUploadFailed         Kind = "upload_failed"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindUnauthorized         Kind = "unauthorized"
	KindTokenExpired         Kind = "token_expired"
	KindForbidden            Kind = "forbidden"
	KindConfiguration        Kind = "configuration_error"
	KindInternal             Kind = "internal_error"
)

var statusByKind = map[Kind]int{
	KindValidation:           http.StatusBadRequest,
	KindUnsupportedMediaType: http.StatusBadRequest,
	KindMissingFile:          http.StatusBadRequest,
	KindEmptyUpload:          http.StatusBadRequest,
	KindTooManyFiles:         http.StatusBadRequest,
	KindUploadFailed:         http.StatusInternalServerError,
	KindNotFound:             http.StatusNotFound,
	KindConflict:             http.StatusConflict,
	KindUnauthorized:         http.StatusUnauthorized,
	KindTokenExpired:         http.StatusUnauthorized,
	KindForbidden:            http.StatusForbidden,
	KindConfiguration:        http.StatusInternalServerError,
	KindInternal:             http.StatusInternalServerError,
}

// FieldError describes one failing field of a validated payload.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error represents an application error
type Error struct {
	Kind    Kind         `json:"kind"`
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Detail  string       `json:"error,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
	Err     error        `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(kind Kind, message string, err error) *Error {
	code, ok := statusByKind[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Response is the JSON body sent to the caller. It never includes the
// wrapped cause.
func (e *Error) Response() map[string]any {
	body := map[string]any{"message": e.Message}
	if e.Detail != "" {
		body["error"] = e.Detail
	}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	return body
}

// WithDetail sets the short, caller-safe description returned as "error".
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// Validation builds a validation error carrying every failing field.
func Validation(fields []FieldError) *Error {
	e := New(KindValidation, "Validation failed", nil)
	e.Fields = fields
	return e
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// From returns err as an *Error, wrapping unknown errors as internal ones.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(KindInternal, "Internal server error", err)
}

// Sentinel kinds for errors.Is checks
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUploadFailed = &Error{Kind: KindUploadFailed}
	ErrTokenExpired = &Error{Kind: KindTokenExpired}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)
