package errors

import (
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies failures by how the pipeline reacts to them.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUpstreamDegraded Kind = "upstream_degraded"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindTransient        Kind = "transient"
	KindInternal         Kind = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindInvalidInput,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Upstream reports that every provider for a required piece of data failed.
func Upstream(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindUpstreamDegraded,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func ErrInvalidURL(err error) *AppError {
	return InvalidInput("ValidateURL", err, "Invalid YouTube URL")
}

func ErrInvalidRequest(message string) *AppError {
	return InvalidInput("ValidateRequest", nil, message)
}

// KindOf returns the Kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if pkgerrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsInvalidInput(err error) bool {
	return err != nil && KindOf(err) == KindInvalidInput
}

// StatusCode maps err to an HTTP status, defaulting to 500.
func StatusCode(err error) int {
	var appErr *AppError
	if pkgerrors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
