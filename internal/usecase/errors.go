package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの種類（レスポンスのcode）
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeMalformed           Code = "MALFORMED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInvalidReference    Code = "INVALID_REFERENCE"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamRejected    Code = "UPSTREAM_REJECTED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInternal            Code = "INTERNAL"
)

var codeStatus = map[Code]int{
	CodeUnauthenticated:     http.StatusUnauthorized,
	CodeMalformed:           http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeConflict:            http.StatusConflict,
	CodeInvalidReference:    http.StatusBadRequest,
	CodeInvalidAmount:       http.StatusBadRequest,
	CodeInvalidState:        http.StatusConflict,
	CodeInvalidTransition:   http.StatusConflict,
	CodeUpstreamUnavailable: http.StatusServiceUnavailable,
	CodeUpstreamRejected:    http.StatusBadGateway,
	CodeForbidden:           http.StatusForbidden,
	CodeInternal:            http.StatusInternalServerError,
}

// handlerがそのままレスポンスにするエラー
type HTTPError struct {
	Status  int
	Code    Code
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(code Code, message string) error {
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func errDB() error {
	return NewHTTPError(CodeInternal, "db error")
}

func errNotFound(what string) error {
	return NewHTTPError(CodeNotFound, what+" not found")
}
