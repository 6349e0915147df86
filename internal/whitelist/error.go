package whitelist

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeAuthCheckFailed Code = "AUTH_CHECK_FAILED"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeConflict        Code = "CONFLICT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

func ErrAuthCheckFailed(cause error) *APIError {
	return &APIError{Code: CodeAuthCheckFailed, Message: "authorized email list is unavailable", cause: cause}
}
func ErrUnauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func ErrValidation(msg string) *APIError   { return &APIError{Code: CodeValidation, Message: msg} }
func ErrConflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func ErrNotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }

// IsAuthCheckFailed reports whether err means the list could not be read at all.
func IsAuthCheckFailed(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == CodeAuthCheckFailed
}

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeValidation:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeAuthCheckFailed:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
