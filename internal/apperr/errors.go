package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeEvaluationCancelled Code = "EVALUATION_CANCELLED"
	CodeServer              Code = "SERVER_ERROR"
)

// Error is a domain error that knows which HTTP status it maps to.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so errors.Is(err, ErrConflict) works for any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "conflict"}
	ErrEvaluationCancelled = &Error{Code: CodeEvaluationCancelled, Message: "evaluation cancelled"}
)

func Validationf(format string, args ...interface{}) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Cancelledf(format string, args ...interface{}) error {
	return &Error{Code: CodeEvaluationCancelled, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps err to a response status. Anything that is not an *Error is a 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound, CodeEvaluationCancelled:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the error code, or CodeServer for unknown errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeServer
}
