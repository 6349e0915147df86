package roster

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeDateNotFound      Code = "DATE_NOT_FOUND"
	CodeWriteFailed       Code = "WRITE_FAILED"
)

// StoreError: 出欠表アクセスの失敗。cause は Unwrap で辿れる
type StoreError struct {
	Code    Code
	Message string
	cause   error
}

func (e *StoreError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StoreError) Unwrap() error { return e.cause }

func ErrSourceUnavailable(msg string, cause error) *StoreError {
	return &StoreError{Code: CodeSourceUnavailable, Message: msg, cause: cause}
}

func ErrDateNotFound(date string) *StoreError {
	return &StoreError{Code: CodeDateNotFound, Message: fmt.Sprintf("date %q not found in sheet header", date)}
}

func ErrWriteFailed(msg string, cause error) *StoreError {
	return &StoreError{Code: CodeWriteFailed, Message: msg, cause: cause}
}

// CodeOf returns the StoreError code carried by err, or "" if there is none.
func CodeOf(err error) Code {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
