package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies application errors for HTTP mapping and logging.
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInvalidState ErrorType = "invalid_state"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeUnauthorized ErrorType = "authentication"
	ErrorTypeStore        ErrorType = "store_error"
	ErrorTypeInternal     ErrorType = "internal"
)

// Stable wire codes returned to clients. Frontends key off these, so they
// must not change between releases.
const (
	CodeSeasonNotFound    = "SeasonNotFound"
	CodeMatchNotFound     = "MatchNotFound"
	CodeEntrantNotFound   = "EntrantNotFound"
	CodeMatchNotActive    = "MatchNotActive"
	CodeMatchNotReady     = "MatchNotReady"
	CodeInvalidEntrant    = "InvalidEntrant"
	CodeAlreadyVoted      = "AlreadyVoted"
	CodeCooldown          = "Cooldown"
	CodeWindowClosed      = "WindowClosed"
	CodeActiveMatchExists = "ActiveMatchExists"
	CodeNoEligibleMatch   = "NoEligibleMatch"
	CodeInvalidInput      = "InvalidInput"
	CodeForbidden         = "Forbidden"
	CodeUnauthorized      = "Unauthorized"
	CodeStoreError        = "StoreError"
	CodeInternalError     = "InternalError"
)

// AppError is a structured application error carrying a taxonomy type,
// a stable wire code and the HTTP status it maps to.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Internal   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s [%s]: %s (%s)", e.Type, e.Code, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s [%s]: %s", e.Type, e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is lets errors.Is match two AppErrors by wire code.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// NewNotFound creates a not-found error with the given wire code.
func NewNotFound(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInvalidState creates an error for operations issued against a match or
// season in the wrong active/finished combination.
func NewInvalidState(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidInput creates a malformed-request error.
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInput,
		Code:       CodeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidInputCode creates a malformed-request error with a specific wire
// code (InvalidEntrant and friends).
func NewInvalidInputCode(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInput,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewUnauthorized creates an authentication error (missing or bad token).
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewConflict creates a conflict error (duplicate vote, closed edit window,
// concurrent activation and the like).
func NewConflict(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewCooldown creates the vote-throttle error. Separate constructor because
// it maps to 429 rather than 409.
func NewCooldown(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       CodeCooldown,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewForbidden creates an authorization error.
func NewForbidden(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       CodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewStoreError wraps an underlying transaction or query failure.
func NewStoreError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStore,
		Code:       CodeStoreError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewInternal creates a generic internal error.
func NewInternal(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// AsAppError extracts an *AppError from err, wrapping unknown errors as
// internal so handlers always have a status and code to respond with.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("Internal server error", err)
}

// HasCode reports whether err is an AppError carrying the given wire code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
