package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels used by the repository layer. Services translate them into the
// typed AppError taxonomy before anything reaches a handler.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
)

// Stable machine-readable error codes surfaced to clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeBusinessRule       = "BUSINESS_RULE_VIOLATION"
	CodeDuplicateResource  = "DUPLICATE_RESOURCE"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is a typed failure with transport metadata. The message and code
// are safe to return to clients; the wrapped cause is for server-side logs
// only and never serialized.
type AppError struct {
	Code        string            `json:"code"`
	Status      int               `json:"-"`
	Message     string            `json:"error"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Is lets errors.Is match two AppErrors by code, so callers can compare
// against a constructor result without caring about message text.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func NewValidationError(message string, fieldErrors map[string]string) *AppError {
	if message == "" {
		message = "Validation failed"
	}
	return &AppError{
		Code:        CodeValidation,
		Status:      http.StatusBadRequest,
		Message:     message,
		FieldErrors: fieldErrors,
	}
}

// NewInvalidCredentialsError is returned for both unknown identifiers and
// wrong passwords. The identical shape prevents account enumeration.
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Status:  http.StatusUnauthorized,
		Message: "Invalid username or password",
	}
}

func NewAccountLockedError() *AppError {
	return &AppError{
		Code:    CodeAccountLocked,
		Status:  http.StatusLocked,
		Message: "Account is temporarily locked due to multiple failed login attempts. Please try again later.",
	}
}

func NewBusinessRuleError(message string) *AppError {
	return &AppError{
		Code:    CodeBusinessRule,
		Status:  http.StatusForbidden,
		Message: message,
	}
}

func NewDuplicateResourceError(resource, field string) *AppError {
	return &AppError{
		Code:    CodeDuplicateResource,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
	}
}

// NewUserNotFoundError is for internal lookups where existence leakage is
// not a concern (e.g. refresh-token re-validation). Login paths must use
// NewInvalidCredentialsError instead.
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:    CodeUserNotFound,
		Status:  http.StatusNotFound,
		Message: "User not found",
	}
}

// NewInternalError wraps an infrastructure failure. The cause is kept for
// logging but the client only ever sees the generic message.
func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: "An internal error occurred. Please try again.",
		cause:   cause,
	}
}

// AsAppError extracts an AppError from an error chain, if present.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
