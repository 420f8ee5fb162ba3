// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError is the JSON error body every handler renders.
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Is lets errors.Is match a detailed copy against its sentinel.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.StatusCode == t.StatusCode
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails returns a copy of e carrying details. The receiver is left untouched
// so the package-level sentinels can be shared between goroutines.
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

var (
	ErrBadRequest          = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrUnauthorized        = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided or are invalid.")
	ErrForbidden           = NewAPIError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action.")
	ErrNotFound            = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrConflict            = NewAPIError(http.StatusConflict, "CONFLICT", "A conflict occurred with the current state of the resource.")
	ErrUnprocessableEntity = NewAPIError(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "The request was well-formed but could not be processed.")
	ErrTooManyRequests     = NewAPIError(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Request was throttled.")
	ErrInternalServer      = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred on the server.")
	ErrServiceUnavailable  = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The server is currently unable to handle the request.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// BindingError converts a gin binding error into a 422 for validation failures
// and a 400 for anything else (malformed JSON, wrong types).
func BindingError(err error) *APIError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return NewValidationAPIError(FormatValidationErrors(ve))
	}
	return ErrBadRequest.WithDetails(err.Error())
}

func NewValidationAPIError(details interface{}) *APIError {
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "VALIDATION_ERROR",
		Message:    "Input validation failed.",
		Details:    details,
	}
}

// FormatValidationErrors converts validator.ValidationErrors into a field -> message map.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string, len(errs))
	for _, e := range errs {
		field := strings.ToLower(e.Field())
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", field)
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", field)
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s characters long.", field, e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s characters.", field, e.Param())
		case "oneof":
			message = fmt.Sprintf("The %s field must be one of the following values: %s.", field, e.Param())
		case "required_without":
			message = fmt.Sprintf("The %s field is required when %s is not present.", field, strings.ToLower(e.Param()))
		case "gte":
			message = fmt.Sprintf("The %s field must be at least %s.", field, e.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", e.Field(), e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}
