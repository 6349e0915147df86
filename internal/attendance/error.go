package attendance

import (
	"errors"
	"fmt"
	"net/http"

	"rollcall-backend/internal/roster"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeDateNotFound      Code = Code(roster.CodeDateNotFound)
	CodeWriteFailed       Code = Code(roster.CodeWriteFailed)
	CodeSourceUnavailable Code = Code(roster.CodeSourceUnavailable)
	CodeInternal          Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string         { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrValidation(msg string) *APIError { return &APIError{Code: CodeValidation, Message: msg} }
func ErrInternal(msg string) *APIError   { return &APIError{Code: CodeInternal, Message: msg} }

// codeOf: roster の StoreError もそのままのコードで返す
func codeOf(err error) (Code, string) {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code, api.Message
	}
	var se *roster.StoreError
	if errors.As(err, &se) {
		return Code(se.Code), se.Message
	}
	return CodeInternal, "internal error"
}

func toHTTPStatus(err error) int {
	code, _ := codeOf(err)
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDateNotFound:
		return http.StatusNotFound
	case CodeWriteFailed:
		return http.StatusBadGateway
	case CodeSourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
