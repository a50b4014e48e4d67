package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrUnsupported        ErrorCode = "UNSUPPORTED"
	ErrMalformedOutput    ErrorCode = "MALFORMED_OUTPUT"
	ErrMatcherUnavailable ErrorCode = "MATCHER_UNAVAILABLE"
	ErrNothingSelected    ErrorCode = "NOTHING_SELECTED"
	ErrExportInProgress   ErrorCode = "EXPORT_IN_PROGRESS"
	ErrExportFailed       ErrorCode = "EXPORT_FAILED"
	ErrCancelled          ErrorCode = "CANCELLED"
	ErrNoResult           ErrorCode = "NO_RESULT"
	ErrInternal           ErrorCode = "INTERNAL_ERROR"
)

var userMessages = map[ErrorCode]string{
	ErrValidationFailed:   "The reconciliation result is not valid and was rejected.",
	ErrInvalidInput:       "The request could not be understood.",
	ErrRateLimited:        "The matching service is busy. Please wait a moment and try again.",
	ErrUnauthorized:       "The matching service rejected our credentials. Check the API key.",
	ErrNotFound:           "The requested resource or model could not be found.",
	ErrUnsupported:        "The matching service does not support this request.",
	ErrMalformedOutput:    "The matching service returned a result we could not read.",
	ErrMatcherUnavailable: "The matching service is unavailable.",
	ErrNothingSelected:    "Select at least one report section to export.",
	ErrExportInProgress:   "An export is already running for this report.",
	ErrExportFailed:       "The report could not be generated.",
	ErrCancelled:          "The export was cancelled.",
	ErrNoResult:           "Run a reconciliation before viewing or exporting a report.",
	ErrInternal:           "Something went wrong.",
}

// Error is a coded failure surfaced to callers of the engine.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a coded error without a cause.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns a coded error carrying err as its cause.
func Wrap(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// UserMessage is the message shown to an end user for a code.
func UserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[ErrInternal]
}

// HTTPStatus maps an error to the status code the HTTP surface answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrValidationFailed, ErrNothingSelected:
		return http.StatusUnprocessableEntity
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrNotFound, ErrNoResult:
		return http.StatusNotFound
	case ErrExportInProgress:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUnauthorized, ErrUnsupported, ErrMalformedOutput, ErrMatcherUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
