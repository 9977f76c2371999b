package responder

import (
	"net/http"

	"github.com/leeforge/fresson/errors"
)

// Error codes carried in the response envelope.
const (
	// 4xxx - client errors
	ErrCodeBadRequest       = 4000
	ErrCodeBindFailed       = 4001
	ErrCodeValidationFailed = 4002
	ErrCodeNotFound         = 4003
	ErrCodeRouteNotFound    = 4004
	ErrCodeMethodNotAllowed = 4005
	ErrCodeTooManyRequests  = 4009
	ErrCodeDecodeFailed     = 4010
	ErrCodeUnsupportedMedia = 4011
	ErrCodeTooLarge         = 4013

	// 5xxx - server errors
	ErrCodeInternalServer = 5000
	ErrCodeStorageService = 5004
	ErrCodeTimeout        = 5006
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:       "Bad Request",
	ErrCodeBindFailed:       "Invalid Request Body",
	ErrCodeValidationFailed: "Validation Failed",
	ErrCodeNotFound:         "Resource Not Found",
	ErrCodeRouteNotFound:    "Route Not Found",
	ErrCodeMethodNotAllowed: "Method Not Allowed",
	ErrCodeTooManyRequests:  "Too Many Requests",
	ErrCodeDecodeFailed:     "Image Decode Failed",
	ErrCodeUnsupportedMedia: "Unsupported Image Format",
	ErrCodeTooLarge:         "Payload Too Large",
	ErrCodeInternalServer:   "Internal Server Error",
	ErrCodeStorageService:   "Storage Service Error",
	ErrCodeTimeout:          "Request Timeout",
}

// codeByType maps application error types to envelope codes.
var codeByType = map[errors.ErrorType]int{
	errors.ErrorTypeValidation:  ErrCodeValidationFailed,
	errors.ErrorTypeDecode:      ErrCodeDecodeFailed,
	errors.ErrorTypeUnsupported: ErrCodeUnsupportedMedia,
	errors.ErrorTypeTooLarge:    ErrCodeTooLarge,
	errors.ErrorTypeNotFound:    ErrCodeNotFound,
	errors.ErrorTypeRateLimit:   ErrCodeTooManyRequests,
	errors.ErrorTypeTimeout:     ErrCodeTimeout,
	errors.ErrorTypeStorage:     ErrCodeStorageService,
	errors.ErrorTypeInternal:    ErrCodeInternalServer,
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// NewError creates a new ErrorBody with code and message
func NewError(code int, message string) ErrorBody {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return ErrorBody{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithDetails creates a new ErrorBody with code, message and details
func NewErrorWithDetails(code int, message string, details any) ErrorBody {
	e := NewError(code, message)
	e.Details = details
	return e
}

// FromAppError converts any error into an envelope error and HTTP status.
// Messages of unknown and internal errors are not exposed.
func FromAppError(err error) (int, ErrorBody) {
	appErr := errors.FromError(err)
	code, ok := codeByType[appErr.Type]
	if !ok {
		return http.StatusInternalServerError, NewError(ErrCodeInternalServer, "")
	}
	if appErr.Type == errors.ErrorTypeInternal {
		return appErr.Status(), NewError(code, "")
	}

	var details any
	if len(appErr.Details) > 0 {
		details = appErr.Details
	}
	return appErr.Status(), NewErrorWithDetails(code, appErr.Error(), details)
}
