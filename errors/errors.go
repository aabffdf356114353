package errors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	NotConfiguredError    ErrorType = "NOT_CONFIGURED"
	NotAuthenticatedError ErrorType = "NOT_AUTHENTICATED"
	FetchFailedError      ErrorType = "FETCH_FAILED"
	AddFailedError        ErrorType = "ADD_FAILED"
	UpdateFailedError     ErrorType = "UPDATE_FAILED"
	DeleteFailedError     ErrorType = "DELETE_FAILED"
	AlreadyExistsError    ErrorType = "ALREADY_EXISTS"
	DecodeFailedError     ErrorType = "DECODE_FAILED"
	ValidationError       ErrorType = "VALIDATION_ERROR"
	NotFoundError         ErrorType = "NOT_FOUND"
	ServerError           ErrorType = "SERVER_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying transport error to errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status code associated with the error.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == errType
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper constructors for the repository error taxonomy

func NotConfigured(service string) *AppError {
	return &AppError{
		Type:       NotConfiguredError,
		Message:    fmt.Sprintf("%s is not configured", service),
		Detail:     "Check the environment configuration",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func NotAuthenticated() *AppError {
	return &AppError{
		Type:       NotAuthenticatedError,
		Message:    "Sign in to manage cities",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func FetchFailed(err error) *AppError {
	return Wrap(err, FetchFailedError, "Failed to fetch cities")
}

func AddFailed(err error) *AppError {
	return Wrap(err, AddFailedError, "Failed to add city")
}

func UpdateFailed(err error) *AppError {
	return Wrap(err, UpdateFailedError, "Failed to update city")
}

func DeleteFailed(err error) *AppError {
	return Wrap(err, DeleteFailedError, "Failed to delete city")
}

func AlreadyExists(cityName string) *AppError {
	return &AppError{
		Type:       AlreadyExistsError,
		Message:    "This city is already in your list",
		Detail:     fmt.Sprintf("City: %s", cityName),
		HTTPStatus: http.StatusConflict,
	}
}

func DecodeFailed(err error) *AppError {
	return Wrap(err, DecodeFailedError, "Failed to decode response")
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case NotAuthenticatedError:
		return http.StatusUnauthorized
	case NotConfiguredError:
		return http.StatusServiceUnavailable
	case AlreadyExistsError:
		return http.StatusConflict
	case FetchFailedError, AddFailedError, UpdateFailedError, DeleteFailedError:
		return http.StatusBadGateway
	case DecodeFailedError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
