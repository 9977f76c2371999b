package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Input errors
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeDecode      ErrorType = "decode"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeTooLarge    ErrorType = "too_large"
	ErrorTypeNotFound    ErrorType = "not_found"

	// Service errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeStorage   ErrorType = "storage"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Machine readable codes carried in AppError.Code.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeDecodeFailed     = "DECODE_FAILED"
	CodeUnsupported      = "UNSUPPORTED_FORMAT"
	CodeTooLarge         = "TOO_LARGE"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimit        = "RATE_LIMIT"
	CodeTimeout          = "TIMEOUT"
	CodeStorage          = "STORAGE_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	Stack      []string       `json:"-"`
	HTTPStatus int            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		if e.InnerError != nil {
			return e.Message + ": " + e.InnerError.Error()
		}
		return e.Message
	}
	if e.InnerError != nil {
		return e.InnerError.Error()
	}
	return string(e.Type)
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *AppError) WithStack() *AppError {
	e.Stack = captureStack(3)
	return e
}

// Status returns the HTTP status for the error, defaulting to 500.
func (e *AppError) Status() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError. Errors already carrying
// an AppError anywhere in their chain return that AppError.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       CodeInternalError,
		InnerError: err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	base := FromError(err)
	return &AppError{
		Type:       base.Type,
		Code:       base.Code,
		Message:    message,
		Details:    base.Details,
		InnerError: err,
		HTTPStatus: base.HTTPStatus,
	}
}

// WrapWithType wraps an error with a specific type
func WrapWithType(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// HTTPStatusOf maps any error to an HTTP status code.
func HTTPStatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return FromError(err).Status()
}

func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message).
		WithCode(CodeValidationFailed).
		WithHTTPStatus(http.StatusBadRequest)
}

func NewInvalid(field string, value any, reason string) *AppError {
	return NewValidation(fmt.Sprintf("invalid value for %s: %v", field, value)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewDecode reports bytes that could not be decoded as an image.
func NewDecode(err error) *AppError {
	return WrapWithType(err, ErrorTypeDecode, "failed to decode image").
		WithCode(CodeDecodeFailed).
		WithHTTPStatus(http.StatusBadRequest)
}

// NewUnsupported reports an image format the pipeline does not accept.
func NewUnsupported(format string) *AppError {
	return New(ErrorTypeUnsupported, fmt.Sprintf("unsupported image format: %s", format)).
		WithCode(CodeUnsupported).
		WithDetail("format", format).
		WithHTTPStatus(http.StatusUnsupportedMediaType)
}

func NewTooLarge(what string, limit int64) *AppError {
	return New(ErrorTypeTooLarge, fmt.Sprintf("%s exceeds limit of %d", what, limit)).
		WithCode(CodeTooLarge).
		WithDetail("limit", limit).
		WithHTTPStatus(http.StatusRequestEntityTooLarge)
}

func NewNotFound(resource string, id any) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource)).
		WithCode(CodeNotFound).
		WithDetail("resource", resource).
		WithDetail("id", id).
		WithHTTPStatus(http.StatusNotFound)
}

func NewRateLimit(message string) *AppError {
	return New(ErrorTypeRateLimit, message).
		WithCode(CodeRateLimit).
		WithHTTPStatus(http.StatusTooManyRequests)
}

func NewTimeout(message string) *AppError {
	return New(ErrorTypeTimeout, message).
		WithCode(CodeTimeout).
		WithHTTPStatus(http.StatusServiceUnavailable)
}

func NewStorage(err error, message string) *AppError {
	return WrapWithType(err, ErrorTypeStorage, message).
		WithCode(CodeStorage).
		WithHTTPStatus(http.StatusBadGateway)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message).
		WithCode(CodeInternalError).
		WithHTTPStatus(http.StatusInternalServerError)
}

// Sentinels for errors.Is comparisons by type.
var (
	ErrDecode      = &AppError{Type: ErrorTypeDecode}
	ErrUnsupported = &AppError{Type: ErrorTypeUnsupported}
	ErrValidation  = &AppError{Type: ErrorTypeValidation}
	ErrNotFound    = &AppError{Type: ErrorTypeNotFound}
	ErrTooLarge    = &AppError{Type: ErrorTypeTooLarge}
)

// captureStack captures the call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return stack
}
