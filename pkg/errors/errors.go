package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeOutsideWindow     = "OUTSIDE_RESERVATION_WINDOW"
	CodeOffsetTooLarge    = "OFFSET_TOO_LARGE"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is the single error type crossing service boundaries. Retryable is
// set only for transient storage failures where a single retry may succeed.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Retryable  bool           `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// CapacityExceeded reports which blocks of the requested range are full.
func CapacityExceeded(fullBlocks []int) *AppError {
	return &AppError{
		Code:       CodeCapacityExceeded,
		Message:    "opening time has no free seats for the requested blocks",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"full_blocks": fullBlocks,
		},
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("reservation cannot move from %s to %s", from, to),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"from": from,
			"to":   to,
		},
	}
}

func OutsideReservationWindow(message string) *AppError {
	return &AppError{
		Code:       CodeOutsideWindow,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func OffsetTooLarge(offset, total int) *AppError {
	return &AppError{
		Code:       CodeOffsetTooLarge,
		Message:    "pagination offset is beyond the result set",
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"offset": offset,
			"total":  total,
		},
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// RetryableInternal marks a transient storage failure. The caller may retry
// the operation exactly once.
func RetryableInternal(message string, err error) *AppError {
	e := Internal(message, err)
	e.Retryable = true
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// IsRetryable reports whether the error is a transient failure worth a single
// retry. Non-AppError values are always fatal.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
