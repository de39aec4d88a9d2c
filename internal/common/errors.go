package common

import (
	"errors"
	"fmt"
	"strings"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that belongs to e's code, so errors.Is works
// whether or not the cause chain carries the sentinel itself.
func (e *AppError) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

// Abort codes. Any of these ends a pipeline run with a failure response.
const (
	CodeInvalidEvent         = "INVALID_EVENT"
	CodeSecretFetchFailed    = "SECRET_FETCH_FAILED"
	CodeServiceInitFailed    = "SERVICE_INIT_FAILED"
	CodeObjectReadFailed     = "OBJECT_READ_FAILED"
	CodeMissingConfiguration = "MISSING_CONFIGURATION"
	CodeAttachmentTooLarge   = "ATTACHMENT_TOO_LARGE"
	CodeConfig               = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidEvent       = errors.New("invalid trigger event")
	ErrSecretFetch        = errors.New("secret fetch failed")
	ErrServiceInit        = errors.New("service init failed")
	ErrObjectRead         = errors.New("object read failed")
	ErrMissingConfig      = errors.New("missing configuration")
	ErrAttachmentTooLarge = errors.New("attachment too large")
)

var sentinels = map[string]error{
	CodeInvalidEvent:         ErrInvalidEvent,
	CodeSecretFetchFailed:    ErrSecretFetch,
	CodeServiceInitFailed:    ErrServiceInit,
	CodeObjectReadFailed:     ErrObjectRead,
	CodeMissingConfiguration: ErrMissingConfig,
	CodeAttachmentTooLarge:   ErrAttachmentTooLarge,
	CodeConfig:               ErrInvalidInput,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func InvalidEventError(message string) *AppError {
	return NewAppError(CodeInvalidEvent, message, nil)
}

func SecretFetchError(err error) *AppError {
	return NewAppError(CodeSecretFetchFailed, "could not load configuration secrets", err)
}

func ServiceInitError(err error) *AppError {
	return NewAppError(CodeServiceInitFailed, "could not initialize external services", err)
}

func ObjectReadError(bucket, key string, err error) *AppError {
	return NewAppError(CodeObjectReadFailed, fmt.Sprintf("could not read object %s/%s", bucket, key), err)
}

func MissingConfigurationError(keys []string) *AppError {
	return NewAppError(CodeMissingConfiguration, fmt.Sprintf("incomplete configuration: %s", strings.Join(keys, ", ")), nil)
}

func AttachmentTooLargeError(size, limit int) *AppError {
	return NewAppError(CodeAttachmentTooLarge, fmt.Sprintf("attachment is %d bytes, limit is %d", size, limit), nil)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code carried anywhere in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
