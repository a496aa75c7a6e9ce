// Package apperr defines the error taxonomy shared by the pipeline and the web surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an AppError.
type Code string

const (
	CodeValidation  Code = "validation"
	CodeRemoteCall  Code = "remote_call"
	CodeAssembly    Code = "assembly"
	CodeNotFound    Code = "not_found"
	CodeConflict    Code = "conflict"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal"
)

// User-facing fallback messages.
const (
	MsgMissingInformation = "Missing Information"
	MsgRequiredFields     = "Please fill in all required fields"
	MsgGenerateFailed     = "Failed to generate presentation"
	MsgCreateFileFailed   = "Failed to create presentation file"
)

// AppError carries a user-facing Message plus the underlying cause.
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a secondary line shown under the message.
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeRemoteCall:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validation is the warning returned when required form fields are missing.
func Validation(detail string) *AppError {
	return New(CodeValidation, MsgMissingInformation).WithDetail(detail)
}

// Assembly wraps any parse or render failure behind the generic file message.
func Assembly(err error) *AppError {
	return Wrap(err, CodeAssembly, MsgCreateFileFailed)
}

// As extracts an *AppError from err, wrapping unknown errors as internal.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternal, err.Error())
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
